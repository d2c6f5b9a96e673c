// Package calc は整数リストの検証・変換と集計演算（合計・平均）を提供する。
//
// JSONから復元された任意の値を受け取り、情報を失わずに整数へ変換できる
// 要素だけからなるリストへ正規化してから計算する。リストでない入力は
// TypeError、変換できない要素を含む入力は ValueError として報告する。
package calc
