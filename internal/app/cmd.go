package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandLogin は管理者ログインを実行することを示す。
	CommandLogin Command = "login"
	// CommandLogout はログアウトしてローカルセッションを破棄することを示す。
	CommandLogout Command = "logout"
	// CommandMe は現在のログインユーザーを表示することを示す。
	CommandMe Command = "me"
	// CommandNews はお知らせの管理操作（list/show/create/edit/delete）を示す。
	CommandNews Command = "news"
	// CommandImport は外部フィードからの一括インポートを示す。
	CommandImport Command = "import"
	// CommandWatch は監視モードで起動することを示す。
	CommandWatch Command = "watch"
	// CommandVersion はバージョン表示を示す。
	CommandVersion Command = "version"
	// CommandHelp は使い方の表示を示す。
	// サポート外のコマンドもここに落ちる。
	CommandHelp Command = "help"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析し、
// 残りの引数とあわせて返す。引数が空またはサポート外のコマンドの
// 場合はCommandHelpを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandHelp, nil
	}

	switch args[0] {
	case "login":
		return CommandLogin, args[1:]
	case "logout":
		return CommandLogout, args[1:]
	case "me":
		return CommandMe, args[1:]
	case "news":
		return CommandNews, args[1:]
	case "import":
		return CommandImport, args[1:]
	case "watch":
		return CommandWatch, args[1:]
	case "version":
		return CommandVersion, args[1:]
	default:
		return CommandHelp, nil
	}
}
