package app

import (
	"testing"
)

func TestParseCommand_EmptyReturnsHelp(t *testing.T) {
	cmd, rest := ParseCommand([]string{})
	if cmd != CommandHelp {
		t.Errorf("ParseCommand([]) = %q, want %q", cmd, CommandHelp)
	}
	if rest != nil {
		t.Errorf("expected nil rest args, got %v", rest)
	}
}

func TestParseCommand_KnownCommands(t *testing.T) {
	tests := []struct {
		arg  string
		want Command
	}{
		{"login", CommandLogin},
		{"logout", CommandLogout},
		{"me", CommandMe},
		{"news", CommandNews},
		{"import", CommandImport},
		{"watch", CommandWatch},
		{"version", CommandVersion},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cmd, _ := ParseCommand([]string{tt.arg})
			if cmd != tt.want {
				t.Errorf("ParseCommand([%s]) = %q, want %q", tt.arg, cmd, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownReturnsHelp(t *testing.T) {
	cmd, _ := ParseCommand([]string{"unknown"})
	if cmd != CommandHelp {
		t.Errorf("ParseCommand([unknown]) = %q, want %q", cmd, CommandHelp)
	}
}

func TestParseCommand_PassesRestArgs(t *testing.T) {
	cmd, rest := ParseCommand([]string{"news", "list", "-sort", "asc"})
	if cmd != CommandNews {
		t.Fatalf("ParseCommand() = %q, want %q", cmd, CommandNews)
	}
	if len(rest) != 3 || rest[0] != "list" {
		t.Errorf("expected rest args [list -sort asc], got %v", rest)
	}
}
