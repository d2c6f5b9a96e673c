// 計算APIサービスのエントリポイント。
// JWTトークンの発行、整数リストの合計・平均の計算、ヘルスチェックを提供する。
package main

import (
	"log"
	"os"

	"mathapi/internal/mathapi"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server, err := mathapi.NewServer(port)
	if err != nil {
		log.Fatalf("計算APIサーバーの初期化に失敗: %v", err)
	}

	log.Printf("計算APIサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("計算APIサービスの起動に失敗: %v", err)
	}
}
