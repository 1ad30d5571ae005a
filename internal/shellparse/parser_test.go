package shellparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		cmds, err := Parse(input)
		assert.NoError(t, err, "empty input must not error")
		assert.Empty(t, cmds, "empty input must yield no commands")
	}
}

func TestParse_SimpleCommand(t *testing.T) {
	cmds, err := Parse("ls -la /tmp")
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	assert.Equal(t, "ls", cmds[0].Binary)
	assert.Equal(t, []string{"-la", "/tmp"}, cmds[0].Args)
	assert.Equal(t, "ls -la /tmp", cmds[0].Raw)
	assert.False(t, cmds[0].HasSudo)
	assert.False(t, cmds[0].HasRedirects)
	assert.Empty(t, cmds[0].Pipes)
}

func TestParse_Quoting(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		binary   string
		wantArgs []string
	}{
		{
			name:     "double quotes preserve spaces",
			input:    `echo "hello world"`,
			binary:   "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:     "single quotes preserve spaces",
			input:    `echo 'hello world'`,
			binary:   "echo",
			wantArgs: []string{"hello world"},
		},
		{
			name:     "quote characters are stripped",
			input:    `grep "pattern" file.txt`,
			binary:   "grep",
			wantArgs: []string{"pattern", "file.txt"},
		},
		{
			name:     "escaped space joins a token",
			input:    `cat my\ file.txt`,
			binary:   "cat",
			wantArgs: []string{"my file.txt"},
		},
		{
			name:     "backslash in single quotes is literal",
			input:    `echo 'a\b'`,
			binary:   "echo",
			wantArgs: []string{`a\b`},
		},
		{
			name:     "adjacent quoted and unquoted text form one token",
			input:    `echo pre"mid"post`,
			binary:   "echo",
			wantArgs: []string{"premidpost"},
		},
		{
			name:     "empty quoted string is a token",
			input:    `printf ""`,
			binary:   "printf",
			wantArgs: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.binary, cmds[0].Binary)
			assert.Equal(t, tt.wantArgs, cmds[0].Args)
		})
	}
}

func TestParse_QuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"unterminated double quote", `echo "hello`, ErrUnterminatedQuote},
		{"unterminated single quote", `echo 'hello`, ErrUnterminatedQuote},
		{"trailing escape", `echo hello\`, ErrTrailingEscape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_Chaining(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantBinaries []string
	}{
		{"semicolon", "ls; pwd", []string{"ls", "pwd"}},
		{"and-chain", "make && make test", []string{"make", "make"}},
		{"or-chain", "test -f x || touch x", []string{"test", "touch"}},
		{"mixed operators", "cd /tmp; ls && pwd || echo failed", []string{"cd", "ls", "pwd", "echo"}},
		{"empty segments are dropped", "ls;; ;pwd", []string{"ls", "pwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, cmds, len(tt.wantBinaries))
			for i, want := range tt.wantBinaries {
				assert.Equal(t, want, cmds[i].Binary, "chain element %d", i)
			}
		})
	}
}

func TestParse_QuotedArgumentThroughPipe(t *testing.T) {
	cmds, err := Parse(`echo "a b" | grep b`)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	assert.Equal(t, "echo", cmds[0].Binary)
	assert.Equal(t, []string{"a b"}, cmds[0].Args)
	require.Len(t, cmds[0].Pipes, 1)
	assert.Equal(t, "grep", cmds[0].Pipes[0].Binary)
	assert.Equal(t, []string{"b"}, cmds[0].Pipes[0].Args)
}

func TestParse_Pipes(t *testing.T) {
	cmds, err := Parse("cat access.log | grep error | wc -l")
	require.NoError(t, err)
	require.Len(t, cmds, 1, "a pipeline is one root command")

	root := cmds[0]
	assert.Equal(t, "cat", root.Binary)
	require.Len(t, root.Pipes, 2)
	assert.Equal(t, "grep", root.Pipes[0].Binary)
	assert.Equal(t, []string{"error"}, root.Pipes[0].Args)
	assert.Equal(t, "wc", root.Pipes[1].Binary)
	assert.Equal(t, []string{"-l"}, root.Pipes[1].Args)
}

func TestParse_OperatorsInsideQuotesAreText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantArgs []string
	}{
		{"semicolon in quotes", `echo "a; b"`, []string{"a; b"}},
		{"pipe in quotes", `echo "a | b"`, []string{"a | b"}},
		{"and in single quotes", `echo 'x && y'`, []string{"x && y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, cmds, 1, "quoted operators must not split the command")
			assert.Equal(t, "echo", cmds[0].Binary)
			assert.Equal(t, tt.wantArgs, cmds[0].Args)
		})
	}
}

func TestParse_SudoPrefix(t *testing.T) {
	cmds, err := Parse("sudo systemctl status nginx")
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	assert.True(t, cmds[0].HasSudo)
	assert.Equal(t, "systemctl", cmds[0].Binary, "sudo prefix must be stripped from the binary")
	assert.Equal(t, []string{"status", "nginx"}, cmds[0].Args)
}

func TestParse_BareSudo(t *testing.T) {
	cmds, err := Parse("sudo")
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].HasSudo)
	assert.Equal(t, "sudo", cmds[0].Binary)
}

func TestParse_SudoInPipeStagePropagates(t *testing.T) {
	cmds, err := Parse("cat config | sudo tee /tmp/copy")
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].HasSudo, "sudo in a pipe stage must surface on the root")
	assert.Equal(t, "cat", cmds[0].Binary)
	assert.Equal(t, "tee", cmds[0].Pipes[0].Binary)
}

func TestParse_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		binary   string
		wantArgs []string
	}{
		{"stdout redirect with separate target", "echo hi > /tmp/out", "echo", []string{"hi"}},
		{"append redirect", "echo hi >> /tmp/out", "echo", []string{"hi"}},
		{"stderr redirect with attached target", "cmd 2>/dev/null", "cmd", nil},
		{"stderr-to-stdout is self-contained", "make 2>&1", "make", nil},
		{"self-contained redirect keeps following args", "grep x f.txt 2>&1", "grep", []string{"x", "f.txt"}},
		{"input redirect", "sort < data.txt", "sort", nil},
		{"both streams redirect", "cmd &> /tmp/all.log", "cmd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.binary, cmds[0].Binary)
			assert.Equal(t, tt.wantArgs, cmds[0].Args, "redirect targets must not appear in Args")
			assert.True(t, cmds[0].HasRedirects)
		})
	}
}

func TestParse_RedirectInPipeStagePropagates(t *testing.T) {
	cmds, err := Parse("cat f | tee /tmp/copy > /tmp/out")
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].HasRedirects)
}

func TestParse_SubshellNotSplit(t *testing.T) {
	// Parenthesized groups are kept intact; the chain splitter must not
	// tear them apart at inner operators.
	cmds, err := Parse("diff <(sort a) <(sort b)")
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "diff", cmds[0].Binary)
}

func TestFlatten(t *testing.T) {
	cmds, err := Parse("cat a | grep x; ls")
	require.NoError(t, err)

	flat := Flatten(cmds)
	require.Len(t, flat, 3)
	assert.Equal(t, "cat", flat[0].Binary)
	assert.Equal(t, "grep", flat[1].Binary)
	assert.Equal(t, "ls", flat[2].Binary)
}

func TestHasCommandSubstitution(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"echo $(whoami)", true},
		{"echo `date`", true},
		{`echo "$(id)"`, true},
		{"echo hello", false},
		{"echo $HOME", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasCommandSubstitution(tt.input), "input: %s", tt.input)
	}
}

func TestHasVariableExpansion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"echo $HOME", true},
		{"echo ${PATH}", true},
		{"echo ${}", true},
		{"echo hello", false},
		{"echo 100$", false},
		{"awk '{print $1}' f", false},
		{"cmd --opt=$VALUE", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasVariableExpansion(tt.input), "input: %s", tt.input)
	}
}
