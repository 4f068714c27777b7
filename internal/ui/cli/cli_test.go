package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"semgraph/internal/core/config"
	"semgraph/internal/shared/version"
)

func writeCrate(t *testing.T, mainSrc string) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "demo", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "main.rs"), []byte(mainSrc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "util.rs"), []byte("pub fn run() { helper(); }\nfn helper() { run(); }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "demo")
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := run("version")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "semgraph version "+version.Version) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRun_UnknownFlagIsUsageError(t *testing.T) {
	code, _, errOut := run("build", "--nope")
	if code != ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(errOut, "unknown flag") {
		t.Fatalf("unexpected stderr: %q", errOut)
	}
}

func TestRun_ConfigPrintsEffectiveSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semgraph.toml")
	if err := os.WriteFile(path, []byte("[build]\ncrate_name = \"custom\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := run("config", "--config", path)
	if code != ExitOK {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	if !strings.Contains(out, `crate_name = "custom"`) {
		t.Fatalf("config output missing override:\n%s", out)
	}
}

func TestRun_BuildPrintsSummary(t *testing.T) {
	root := writeCrate(t, "mod util;\nfn main() { util::run(); }\n")

	code, out, errOut := run("build", root, "--plain")
	if code != ExitOK {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{"crate demo", "Call cycles (1)", "crate::util::helper -> crate::util::run"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRun_BuildStrictFailsOnDiagnostics(t *testing.T) {
	root := writeCrate(t, "mod util;\nfn main() { util::run(); missing(); }\n")

	code, out, _ := run("build", root, "--plain")
	if code != ExitOK {
		t.Fatalf("non-strict exit code = %d", code)
	}
	if !strings.Contains(out, "Diagnostics (1)") {
		t.Fatalf("summary missing diagnostics:\n%s", out)
	}

	code, _, errOut := run("build", root, "--plain", "--strict")
	if code != ExitDiagnostics {
		t.Fatalf("strict exit code = %d, want %d", code, ExitDiagnostics)
	}
	if strings.Contains(errOut, "Error:") {
		t.Fatalf("diagnostics exit should not print an error line: %q", errOut)
	}
}

func TestRun_BuildStrictAcceptsIdiomaticCrate(t *testing.T) {
	root := writeCrate(t, `mod util;
use util::run;

fn main() {
    let v: Vec<u8> = Vec::new();
    let name = String::from("x");
    let _ = Some(name);
    let _: Result<(), ()> = Ok(());
    drop(v);
    run();
}

#[cfg(test)]
mod tests {
    use super::*;

    #[test]
    fn runs() {
        run();
        main();
    }
}
`)

	code, out, errOut := run("build", root, "--plain", "--strict")
	if code != ExitOK {
		t.Fatalf("exit code = %d: %s\n%s", code, errOut, out)
	}

	code, out, _ = run("query", "in", "util::run", "--root", root)
	if code != ExitOK {
		t.Fatalf("query exit code = %d", code)
	}
	if !strings.Contains(out, "crate::tests::runs\tcall\tcrate::util::run") {
		t.Fatalf("test module call not linked:\n%s", out)
	}
}

func TestRun_Query(t *testing.T) {
	root := writeCrate(t, "mod util;\nfn main() { util::run(); }\n")

	code, out, errOut := run("query", "out", "main", "--root", root)
	if code != ExitOK {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "crate::main\tcall\tcrate::util::run") {
		t.Fatalf("unexpected out edges:\n%s", out)
	}

	code, out, _ = run("query", "chain", "main", "util::helper", "--root", root)
	if code != ExitOK {
		t.Fatalf("chain exit code = %d", code)
	}
	if strings.TrimSpace(out) != "crate::main -> crate::util::run -> crate::util::helper" {
		t.Fatalf("unexpected chain: %q", out)
	}

	code, out, _ = run("query", "lookup", "util::run", "--root", root, "--format", "yaml")
	if code != ExitOK {
		t.Fatalf("lookup exit code = %d", code)
	}
	if !strings.Contains(out, "path: crate::util::run") || !strings.Contains(out, "kind: function") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}

	code, out, _ = run("query", "select", "SELECT functions WHERE fan_in >= 2", "--root", root)
	if code != ExitOK {
		t.Fatalf("select exit code = %d", code)
	}
	if strings.TrimSpace(out) != "crate::util::run\tfunction\tin=2\tout=1" {
		t.Fatalf("unexpected select rows: %q", out)
	}

	code, _, errOut = run("query", "lookup", "nowhere", "--root", root)
	if code != ExitError {
		t.Fatalf("missing lookup exit code = %d", code)
	}
	if !strings.Contains(errOut, "Error:") {
		t.Fatalf("expected error line, got %q", errOut)
	}
}

func TestRun_ManifestRoundTripsThroughBuild(t *testing.T) {
	root := writeCrate(t, "mod util;\nfn main() { util::run(); }\n")
	manifest := filepath.Join(t.TempDir(), "forest.yaml")

	code, out, errOut := run("manifest", root, "-o", manifest)
	if code != ExitOK {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "(2 modules)") {
		t.Fatalf("unexpected output: %q", out)
	}

	code, out, errOut = run("build", "--manifest", manifest, "--plain")
	if code != ExitOK {
		t.Fatalf("build from manifest exit code = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "crate demo") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestLoadConfig_Discovery(t *testing.T) {
	dir := t.TempDir()

	cfg, path, err := loadConfig("", dir)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if path != "" || cfg.Source.Root != "." {
		t.Fatalf("expected defaults, got path=%q root=%q", path, cfg.Source.Root)
	}

	want := filepath.Join(dir, defaultConfigName)
	if err := os.WriteFile(want, []byte("[source]\nroot = \"crate\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = loadConfig("", dir)
	if err != nil {
		t.Fatalf("discovered: %v", err)
	}
	if path != want || cfg.Source.Root != "crate" {
		t.Fatalf("unexpected discovery: path=%q root=%q", path, cfg.Source.Root)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.toml"), dir); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Manifest = "old.yaml"
	opts := &globalOptions{logLevel: " DEBUG ", crateName: "renamed"}

	if err := applyOverrides(cfg, opts, "sub/crate", "/work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Root != filepath.Clean("/work/sub/crate") {
		t.Fatalf("root = %q", cfg.Source.Root)
	}
	if cfg.Source.Manifest != "" {
		t.Fatalf("root argument should clear the manifest, got %q", cfg.Source.Manifest)
	}
	if cfg.Log.Level != "debug" || cfg.Build.CrateName != "renamed" {
		t.Fatalf("unexpected overrides: level=%q crate=%q", cfg.Log.Level, cfg.Build.CrateName)
	}

	if err := applyOverrides(cfg, &globalOptions{logFormat: "xml"}, "", "/work"); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}
