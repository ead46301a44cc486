// cmd/atm/main.go

// atm 啟動單一自助機台：帳戶目錄由設定檔（預設為示範資料）建立，
// 可透過互動選單 (shell) 或 HTTP API (serve) 操作，audit 則驗證帳本。
package main

import "atm/internal/cli"

func main() {
	cli.Execute()
}
