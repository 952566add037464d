// cmd/bank/main.go
//
// bank 指令的進入點；設定、帳本與各子命令的組裝皆在 internal/cli。
package main

import "securebank/internal/cli"

func main() {
	cli.Execute()
}
