package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

const boxArtifact = `{"contractName": "Box", "sourceName": "contracts/Box.sol", "buildInfoId": "b1"}`

const boxV1 = `{"output": {"contracts": {"contracts/Box.sol": {"Box": {"storageLayout": {
	"storage": [
		{"contract": "Box", "label": "owner", "offset": 0, "slot": "0", "type": "t_address"},
		{"contract": "Box", "label": "value", "offset": 0, "slot": "1", "type": "t_uint256"}
	],
	"types": {
		"t_address": {"encoding": "inplace", "label": "address", "numberOfBytes": "20"},
		"t_uint256": {"encoding": "inplace", "label": "uint256", "numberOfBytes": "32"}
	}
}}}}}}`

// boxInserted puts a new variable in front of the existing ones.
const boxInserted = `{"output": {"contracts": {"contracts/Box.sol": {"Box": {"storageLayout": {
	"storage": [
		{"contract": "Box", "label": "admin", "offset": 0, "slot": "0", "type": "t_uint256"},
		{"contract": "Box", "label": "owner", "offset": 0, "slot": "1", "type": "t_address"},
		{"contract": "Box", "label": "value", "offset": 0, "slot": "2", "type": "t_uint256"}
	],
	"types": {
		"t_address": {"encoding": "inplace", "label": "address", "numberOfBytes": "20"},
		"t_uint256": {"encoding": "inplace", "label": "uint256", "numberOfBytes": "32"}
	}
}}}}}}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newProject writes a config file and a Hardhat 3 artifact for Box and returns the
// config path.
func newProject(t *testing.T) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	cfgPath = filepath.Join(root, "storage-layout.yaml")
	writeFile(t, cfgPath, "root: .\npath: layouts\n")
	writeFile(t, filepath.Join(root, "artifacts/contracts/Box.sol/Box.json"), boxArtifact)
	writeFile(t, filepath.Join(root, "artifacts/build-info/b1.output.json"), boxV1)
	return root, cfgPath
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(context.Background(), args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestUsage(t *testing.T) {
	if code, _, stderr := runCLI(t); code != exitError || !strings.Contains(stderr, "Subcommands:") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, stdout, _ := runCLI(t, "help"); code != exitOK || !strings.Contains(stdout, "inspect") {
		t.Errorf("help: code %d, stdout %q", code, stdout)
	}
	if code, _, _ := runCLI(t, "-h"); code != exitOK {
		t.Errorf("-h: code %d", code)
	}
	if code, _, stderr := runCLI(t, "bogus"); code != exitError || !strings.Contains(stderr, `unknown subcommand "bogus"`) {
		t.Errorf("bogus: code %d, stderr %q", code, stderr)
	}
}

func TestInspect(t *testing.T) {
	_, cfg := newProject(t)

	code, stdout, stderr := runCLI(t, "-config", cfg, "inspect", "Box")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, stderr)
	}
	for _, want := range []string{"owner", "value", "address", "uint256"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output lacks %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Errorf("colored output to a buffer:\n%s", stdout)
	}
}

func TestInspectJSON(t *testing.T) {
	_, cfg := newProject(t)

	code, stdout, stderr := runCLI(t, "-config", cfg, "inspect", "-base-slot", "0x10", "-json", "contracts/Box.sol:Box")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, stderr)
	}

	var got []struct {
		ID      json.Number `json:"id"`
		Entries []struct {
			Name string `json:"name"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(got) != 2 || got[0].ID != "16" || got[1].ID != "17" {
		t.Fatalf("slots = %+v", got)
	}
	if got[1].Entries[0].Name != "value" {
		t.Errorf("slot 17 = %+v", got[1].Entries)
	}
}

func TestInspectErrors(t *testing.T) {
	_, cfg := newProject(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing contract", []string{"inspect", "Vault"}, "not found"},
		{"no argument", []string{"inspect"}, "requires 1 argument"},
		{"both bases", []string{"inspect", "-namespace", "a", "-base-slot", "1", "Box"}, "mutually exclusive"},
		{"bad base", []string{"inspect", "-base-slot", "x", "Box"}, "invalid -base-slot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, append([]string{"-config", cfg}, tt.args...)...)
			if code != exitError {
				t.Errorf("code = %d, want %d", code, exitError)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want %q", stderr, tt.want)
			}
		})
	}
}

func TestNoCompile(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name     string
		args     []string
		compiled bool
	}{
		{"inspect", []string{"inspect", "Box"}, true},
		{"inspect no compile", []string{"inspect", "-no-compile", "Box"}, false},
		{"diff", []string{"diff", "Box", "Box"}, true},
		{"diff no compile", []string{"diff", "-no-compile", "Box", "Box"}, false},
		{"check", []string{"check", "missing.json", "Box"}, true},
		{"check no compile", []string{"check", "-no-compile", "missing.json", "Box"}, false},
		{"export", []string{"export"}, true},
		{"export no compile", []string{"export", "-no-compile"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, cfg := newProject(t)
			writeFile(t, cfg, "root: .\npath: layouts\ncompile: echo built >> compiled.txt\n")

			runCLI(t, append([]string{"-config", cfg}, tt.args...)...)

			_, err := os.Stat(filepath.Join(root, "compiled.txt"))
			if compiled := err == nil; compiled != tt.compiled {
				t.Errorf("compiled = %v, want %v", compiled, tt.compiled)
			}
		})
	}
}

func TestMissingConfig(t *testing.T) {
	code, _, stderr := runCLI(t, "-config", filepath.Join(t.TempDir(), "nope.yaml"), "inspect", "Box")
	if code != exitError || !strings.HasPrefix(stderr, "Error: ") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}

func TestExportAndCheck(t *testing.T) {
	root, cfg := newProject(t)

	code, stdout, stderr := runCLI(t, "-config", cfg, "export")
	if code != exitOK {
		t.Fatalf("export: code %d: %s", code, stderr)
	}
	saved := filepath.Join(root, "layouts", "contracts", "Box.sol:Box.json")
	if strings.TrimSpace(stdout) != saved {
		t.Fatalf("export wrote %q, want %q", stdout, saved)
	}
	if !strings.Contains(stderr, "exported 1 layout(s)") {
		t.Errorf("stderr = %q", stderr)
	}

	code, stdout, stderr = runCLI(t, "-config", cfg, "check", "layouts/contracts/Box.sol:Box.json", "Box")
	if code != exitOK {
		t.Fatalf("check unchanged: code %d: %s%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "compatible") {
		t.Errorf("stdout = %q", stdout)
	}

	writeFile(t, filepath.Join(root, "artifacts/build-info/b1.output.json"), boxInserted)

	code, stdout, _ = runCLI(t, "-config", cfg, "check", saved, "Box")
	if code != exitBreaking {
		t.Fatalf("check inserted: code %d, want %d\n%s", code, exitBreaking, stdout)
	}
	if !strings.Contains(stdout, "moved") || !strings.Contains(stdout, "breaking change(s)") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestExportFlags(t *testing.T) {
	root, cfg := newProject(t)

	code, _, stderr := runCLI(t, "-config", cfg, "export", "-flat", "-spacing", "0", "-path", "flat")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(root, "flat", "Box.json"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Count(data, []byte("\n")) != 1 {
		t.Errorf("spacing 0 should be one line:\n%s", data)
	}

	code, stdout, _ := runCLI(t, "-config", cfg, "export", "-path", "none", "-except", "Box$")
	if code != exitOK || stdout != "" {
		t.Errorf("except: code %d, stdout %q", code, stdout)
	}

	if code, _, stderr := runCLI(t, "-config", cfg, "export", "-path", ".."); code != exitError || !strings.Contains(stderr, "inside the project") {
		t.Errorf("outside root: code %d, stderr %q", code, stderr)
	}
	if code, _, stderr := runCLI(t, "-config", cfg, "export", "-only", "("); code != exitError {
		t.Errorf("bad pattern: code %d, stderr %q", code, stderr)
	}
}

func TestDiff(t *testing.T) {
	root, cfg := newProject(t)
	writeFile(t, filepath.Join(root, "saved.json"), `{
		"storage": [{"contract": "Box", "label": "owner", "offset": 0, "slot": "0", "type": "t_address"}],
		"types": {"t_address": {"encoding": "inplace", "label": "address", "numberOfBytes": "20"}}
	}`)

	code, stdout, stderr := runCLI(t, "-config", cfg, "diff", "saved.json", "Box")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "value") || !strings.Contains(stdout, "-") {
		t.Errorf("diff output:\n%s", stdout)
	}

	code, stdout, _ = runCLI(t, "-config", cfg, "diff", "-json", "saved.json", "Box")
	if code != exitOK {
		t.Fatalf("json code %d", code)
	}
	var merged []map[string]any
	if err := json.Unmarshal([]byte(stdout), &merged); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(merged) != 2 {
		t.Errorf("merged slots = %d, want 2", len(merged))
	}

	if code, _, stderr := runCLI(t, "-config", cfg, "diff", "Box"); code != exitError || !strings.Contains(stderr, "requires 2") {
		t.Errorf("one argument: code %d, stderr %q", code, stderr)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowserModel(t *testing.T) {
	var filters []string
	m := newBrowserModel("Box", func(filter string) string {
		filters = append(filters, filter)
		if filter == "zz" {
			return ""
		}
		return "table " + filter
	})
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if m.viewport.Height != 26 {
		t.Errorf("viewport height = %d", m.viewport.Height)
	}
	if !strings.Contains(m.View(), "Storage Layout") || !strings.Contains(m.View(), "/ filter") {
		t.Errorf("view:\n%s", m.View())
	}

	m.Update(key("/"))
	if m.state != stateFilter {
		t.Fatalf("state = %v after /", m.state)
	}
	m.Update(key("z"))
	m.Update(key("z"))
	if last := filters[len(filters)-1]; last != "zz" {
		t.Errorf("last filter = %q", last)
	}
	if !strings.Contains(m.View(), "no entries match zz") {
		t.Errorf("view:\n%s", m.View())
	}

	m.Update(key("enter"))
	if m.state != stateBrowse || m.filter.Value() != "zz" {
		t.Errorf("enter: state %v, filter %q", m.state, m.filter.Value())
	}
	if !strings.Contains(m.View(), "filter: zz") {
		t.Errorf("view:\n%s", m.View())
	}

	m.Update(key("esc"))
	if m.filter.Value() != "" || filters[len(filters)-1] != "" {
		t.Errorf("esc did not clear: %q", m.filter.Value())
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestFilters(t *testing.T) {
	if !matches("own", "Owner", "address") || matches("x", "owner", "address") {
		t.Error("matches")
	}

	l := stringList{values: []string{"default"}}
	_ = l.Set("a")
	_ = l.Set("b")
	if l.String() != "a,b" {
		t.Errorf("stringList = %q", l.String())
	}
}
