package calc

import (
	"fmt"
	"math"
	"strconv"
)

// 操作名。エラーメッセージ内でどの操作が失敗したかを示すために使用する。
const (
	opSum     = "somar"
	opAverage = "calcular_media"
)

// TypeError は入力がリストではない場合の型エラーを表す。
type TypeError struct {
	// Operation はエラーが発生した操作名。直接変換を呼び出した場合は空。
	Operation string
	// Got は実際に渡された値の型名。
	Got string
}

// Error はエラーメッセージを返す。
func (e *TypeError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("型エラー: 入力はリストでなければなりません（受け取った型: %s）", e.Got)
	}
	return fmt.Sprintf("%s の型エラー: 入力はリストでなければなりません（受け取った型: %s）", e.Operation, e.Got)
}

// ValueError はリストまたは要素の値が不正な場合のエラーを表す。
type ValueError struct {
	// Operation はエラーが発生した操作名。直接変換を呼び出した場合は空。
	Operation string
	// Position は問題のある要素の位置（1始まり）。リスト全体の問題の場合は0。
	Position int
	// Reason は失敗した規則の説明。
	Reason string
}

// Error はエラーメッセージを返す。
func (e *ValueError) Error() string {
	msg := e.Reason
	if e.Position > 0 {
		msg = fmt.Sprintf("位置 %d の要素: %s", e.Position, e.Reason)
	}
	if e.Operation == "" {
		return fmt.Sprintf("値エラー: %s", msg)
	}
	return fmt.Sprintf("%s の値エラー: %s", e.Operation, msg)
}

// CoerceToIntegers は任意の値を検証し、整数のリストへ変換する。
// 入力がリストでない場合は *TypeError、情報を失わずに整数へ変換できない
// 要素を含む場合は *ValueError を返す。入力は変更せず、常に新しいスライスを返す。
//
// 要素ごとの変換規則（この順に適用する）:
//  1. 整数はそのまま受け入れる。
//  2. 小数部がゼロの浮動小数点数は整数へ変換する。それ以外は値エラー。
//  3. 符号と数字だけからなる文字列は整数へ変換する。それ以外は値エラー。
//  4. その他の型（null、真偽値、ネストしたリスト、オブジェクト等）は値エラー。
func CoerceToIntegers(raw any) ([]int64, error) {
	return coerce("", raw)
}

// coerce はCoerceToIntegersの実体。operation はエラーメッセージに含める操作名。
func coerce(operation string, raw any) ([]int64, error) {
	elements, ok := asSequence(raw)
	if !ok {
		return nil, &TypeError{Operation: operation, Got: typeName(raw)}
	}

	result := make([]int64, 0, len(elements))
	for i, item := range elements {
		n, reason := coerceElement(item)
		if reason != "" {
			return nil, &ValueError{Operation: operation, Position: i + 1, Reason: reason}
		}
		result = append(result, n)
	}
	return result, nil
}

// asSequence は入力をリストとして解釈する。JSONデコード結果の []any に加えて、
// ライブラリを直接呼び出す場合のために整数スライスも受け入れる。
func asSequence(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []int64:
		elements := make([]any, len(v))
		for i, n := range v {
			elements[i] = n
		}
		return elements, true
	case []int:
		elements := make([]any, len(v))
		for i, n := range v {
			elements[i] = n
		}
		return elements, true
	default:
		return nil, false
	}
}

// coerceElement は単一要素を整数へ変換する。変換できない場合は
// 空でない理由文字列を返す。
func coerceElement(item any) (int64, string) {
	switch v := item.(type) {
	case nil:
		return 0, "要素がnullです。整数を指定してください"
	case bool:
		return 0, fmt.Sprintf("真偽値 '%t' は整数として扱えません", v)
	case int:
		return int64(v), ""
	case int32:
		return int64(v), ""
	case int64:
		return v, ""
	case float64:
		return coerceFloat(v)
	case float32:
		return coerceFloat(float64(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Sprintf("文字列 '%s' は符号と数字だけの整数表記ではありません", v)
		}
		return n, ""
	default:
		return 0, fmt.Sprintf("型 '%s' の要素は整数として扱えません", typeName(item))
	}
}

// coerceFloat は小数部を持たない浮動小数点数だけを整数へ変換する。
func coerceFloat(v float64) (int64, string) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Sprintf("浮動小数点数 '%v' は整数として扱えません", v)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Sprintf("浮動小数点数 '%v' は小数部を持つため、情報を失わずに整数へ変換できません", v)
	}
	// float64(math.MaxInt64)は2^63に丸められるため、>=で範囲外を判定する
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Sprintf("数値 '%v' は表現可能な整数の範囲を超えています", v)
	}
	return int64(v), ""
}

// typeName は値の型名を返す。エラーメッセージ用。
func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// SumNumbers は入力を整数リストへ変換し、合計を返す。
// 空のリストは不正な入力として *ValueError を返す。
func SumNumbers(raw any) (int64, error) {
	numbers, err := coerce(opSum, raw)
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, &ValueError{Operation: opSum, Reason: "数値リストは空であってはなりません"}
	}

	var sum int64
	for _, n := range numbers {
		sum += n
	}
	return sum, nil
}

// CalculateAverage は入力を整数リストへ変換し、算術平均を返す。
// 空のリストはエラーではなく ok=false を返す（ゼロ除算の回避）。
func CalculateAverage(raw any) (avg float64, ok bool, err error) {
	numbers, err := coerce(opAverage, raw)
	if err != nil {
		return 0, false, err
	}
	if len(numbers) == 0 {
		return 0, false, nil
	}

	var sum int64
	for _, n := range numbers {
		sum += n
	}
	return float64(sum) / float64(len(numbers)), true, nil
}
