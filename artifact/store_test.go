package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/wippyai/storage-layout/errors"
)

const tokenLayout = `{
  "storage": [
    {"astId": 3, "contract": "contracts/Token.sol:Token", "label": "owner", "offset": 0, "slot": "0", "type": "t_address"},
    {"astId": 5, "contract": "contracts/Token.sol:Token", "label": "supply", "offset": 0, "slot": "1", "type": "t_uint256"}
  ],
  "types": {
    "t_address": {"encoding": "inplace", "label": "address", "numberOfBytes": "20"},
    "t_uint256": {"encoding": "inplace", "label": "uint256", "numberOfBytes": "32"}
  }
}`

const vaultLayout = `{
  "storage": [
    {"contract": "contracts/Vault.sol:Vault", "label": "paused", "offset": 0, "slot": "0", "type": "t_bool"}
  ],
  "types": {
    "t_bool": {"encoding": "inplace", "label": "bool", "numberOfBytes": "1"}
  }
}`

func projectFS() fstest.MapFS {
	return fstest.MapFS{
		// Hardhat 3
		"artifacts/contracts/Token.sol/Token.json": {Data: []byte(`{
			"_format": "hh3-artifact-1",
			"contractName": "Token",
			"sourceName": "contracts/Token.sol",
			"buildInfoId": "solc-0_8_28-abc"
		}`)},
		"artifacts/contracts/Token.sol/artifacts.d.ts": {Data: []byte("export {}")},
		"artifacts/build-info/solc-0_8_28-abc.output.json": {Data: []byte(`{
			"_format": "hh3-sol-build-info-output-1",
			"output": {"contracts": {
				"contracts/Token.sol": {"Token": {"storageLayout": ` + tokenLayout + `}},
				"contracts/legacy/Token.sol": {"Token": {"storageLayout": {"storage": [], "types": null}}}
			}}
		}`)},
		"artifacts/build-info/solc-0_8_28-abc.json": {Data: []byte(`{"_format": "hh3-sol-build-info-1"}`)},

		// a second Token under another source, sharing the build info
		"artifacts/contracts/legacy/Token.sol/Token.json": {Data: []byte(`{
			"contractName": "Token",
			"sourceName": "contracts/legacy/Token.sol",
			"buildInfoId": "solc-0_8_28-abc"
		}`)},

		// Hardhat 2
		"artifacts/contracts/Vault.sol/Vault.json": {Data: []byte(`{
			"_format": "hh-sol-artifact-1",
			"contractName": "Vault",
			"sourceName": "contracts/Vault.sol"
		}`)},
		"artifacts/contracts/Vault.sol/Vault.dbg.json": {Data: []byte(`{
			"_format": "hh-sol-dbg-1",
			"buildInfo": "../../build-info/f00d.json"
		}`)},
		"artifacts/build-info/f00d.json": {Data: []byte(`{
			"output": {"contracts": {"contracts/Vault.sol": {"Vault": {"storageLayout": ` + vaultLayout + `}}}}
		}`)},

		// compiled without storageLayout in outputSelection
		"artifacts/contracts/Bare.sol/Bare.json": {Data: []byte(`{
			"contractName": "Bare",
			"sourceName": "contracts/Bare.sol",
			"buildInfoId": "solc-bare"
		}`)},
		"artifacts/build-info/solc-bare.output.json": {Data: []byte(`{
			"output": {"contracts": {"contracts/Bare.sol": {"Bare": {"abi": []}}}}
		}`)},

		"layouts/token.json": {Data: []byte(tokenLayout)},
		"layouts/broken.json": {Data: []byte(`{"storage": [{"label": 1}], "types": {}}`)},
	}
}

func TestFullyQualifiedNames(t *testing.T) {
	s := New(projectFS(), "/project", "")

	names, err := s.FullyQualifiedNames(context.Background())
	if err != nil {
		t.Fatalf("FullyQualifiedNames: %v", err)
	}
	want := []string{
		"contracts/Bare.sol:Bare",
		"contracts/Token.sol:Token",
		"contracts/Vault.sol:Vault",
		"contracts/legacy/Token.sol:Token",
	}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoad(t *testing.T) {
	s := New(projectFS(), "/project", "artifacts")
	ctx := context.Background()

	tests := []struct {
		name      string
		input     string
		wantLen   int
		wantFirst string
	}{
		{"hardhat 3 qualified", "contracts/Token.sol:Token", 2, "owner"},
		{"hardhat 2 bare", "Vault", 1, "paused"},
		{"hardhat 2 qualified", "contracts/Vault.sol:Vault", 1, "paused"},
		{"empty layout", "contracts/legacy/Token.sol:Token", 0, ""},
		{"layout file", "layouts/token.json", 2, "owner"},
		{"absolute file inside root", "/project/layouts/token.json", 2, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := s.Load(ctx, tt.input)
			if err != nil {
				t.Fatalf("Load(%q): %v", tt.input, err)
			}
			if len(l.Storage) != tt.wantLen {
				t.Fatalf("storage: got %d, want %d", len(l.Storage), tt.wantLen)
			}
			if tt.wantLen > 0 && l.Storage[0].Label != tt.wantFirst {
				t.Errorf("first label = %q, want %q", l.Storage[0].Label, tt.wantFirst)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	s := New(projectFS(), "/project", "")
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		kind  errors.Kind
	}{
		{"unknown bare name", "Missing", errors.KindNotFound},
		{"unknown qualified name", "contracts/Token.sol:Missing", errors.KindNotFound},
		{"missing file", "layouts/none.json", errors.KindNotFound},
		{"malformed file", "layouts/broken.json", errors.KindInvalidLayout},
		{"no storage layout in output", "Bare", errors.KindInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Load(ctx, tt.input)
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("Load(%q) kind = %q, want %q (err: %v)", tt.input, got, tt.kind, err)
			}
		})
	}
}

func TestLoadAmbiguous(t *testing.T) {
	s := New(projectFS(), "/project", "")

	_, err := s.Load(context.Background(), "Token")
	if err == nil {
		t.Fatal("expected error")
	}

	var amb *errors.AmbiguousNameError
	if !errors.As(err, &amb) {
		t.Fatalf("got %T, want *errors.AmbiguousNameError", err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("candidates = %v", amb.Candidates)
	}
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindAmbiguous}) {
		t.Error("ambiguous error does not match load/ambiguous")
	}
	if got := errors.KindOf(err); got != errors.KindAmbiguous {
		t.Errorf("KindOf = %v, want %v", got, errors.KindAmbiguous)
	}
}

func TestMissingArtifactsDir(t *testing.T) {
	s := New(fstest.MapFS{}, "", "out")
	_, err := s.FullyQualifiedNames(context.Background())
	if errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("got %v, want not_found", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := New(projectFS(), "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FullyQualifiedNames(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestOpenReadsDisk(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "saved.json")
	if err := os.WriteFile(file, []byte(vaultLayout), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(dir, "")
	if s.Root() != dir {
		t.Errorf("Root() = %q", s.Root())
	}

	for _, name := range []string{"saved.json", file} {
		l, err := s.Load(context.Background(), name)
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if len(l.Storage) != 1 {
			t.Errorf("Load(%q): %d entries", name, len(l.Storage))
		}
	}

	outside := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(outside, []byte(tokenLayout), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(context.Background(), outside); err != nil {
		t.Errorf("Load(outside): %v", err)
	}
}
