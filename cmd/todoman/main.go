// Command todoman はTodo APIサーバーを起動する。
//
//	todoman [serve]      APIサーバーを起動する（デフォルト）
//	todoman migrate      データベースマイグレーションを適用する
//	todoman healthcheck  /health に問い合わせる（コンテナのヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/todoman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "todoman: %v\n", err)
		os.Exit(1)
	}
}
