package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

func newTestCommand(configPath string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", configPath, "")
	cmd.Flags().Bool("dev", false, "")
	return cmd
}

func TestNewRuntimeExpandsTokenDBHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldwd) })

	configPath := filepath.Join(work, "foreman.toml")
	raw := "[general]\ntoken_db = \"~/.foreman/tokens.db\"\n"
	if err := os.WriteFile(configPath, []byte(raw), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	rt, err := newRuntime(newTestCommand(configPath))
	if err != nil {
		t.Fatalf("newRuntime() error = %v", err)
	}
	defer rt.close()

	if _, err := os.Stat(filepath.Join(home, ".foreman", "tokens.db")); err != nil {
		t.Fatalf("token db not created under home dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "~")); !os.IsNotExist(err) {
		t.Fatalf("literal ~ directory created in working directory")
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "simple", raw: "1,2,3", want: []int64{1, 2, 3}},
		{name: "spaces", raw: " 4 , 5 ", want: []int64{4, 5}},
		{name: "empty", raw: "", want: nil},
		{name: "trailing comma", raw: "7,", want: []int64{7}},
		{name: "not a number", raw: "1,x", wantErr: true},
		{name: "zero id", raw: "0", wantErr: true},
		{name: "negative id", raw: "-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDList(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseIDList(%q) error = nil, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseIDList(%q) error = %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseIDList(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
