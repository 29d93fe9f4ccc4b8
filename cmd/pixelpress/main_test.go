package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	configPath := filepath.Join(root, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
export_dir = %q

[logging]
format = "json"
level = "error"
`,
		filepath.Join(root, "data"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "exports"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func writeTestImage(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	path := filepath.Join(t.TempDir(), "input.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output missing target path: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
}

func TestConfigShowPrintsResolvedValues(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "config", "show", "--path", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "Default format:  jpeg") {
		t.Fatalf("expected default format in output:\n%s", out)
	}
	if !strings.Contains(out, "pixelpress_monthly") {
		t.Fatalf("expected product ids in output:\n%s", out)
	}
}

func TestConvertAndHistoryEndToEnd(t *testing.T) {
	configPath := writeTestConfig(t)
	imagePath := writeTestImage(t)

	out, err := runCommand(t, "--config", configPath, "convert", imagePath, "--format", "png", "--quality", "0.9")
	if err != nil {
		t.Fatalf("convert: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Converted to PNG") {
		t.Fatalf("unexpected convert output:\n%s", out)
	}
	if !strings.Contains(out, "Exported to ") {
		t.Fatalf("expected export line:\n%s", out)
	}

	exportLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Exported to ") {
			exportLine = strings.TrimPrefix(line, "Exported to ")
		}
	}
	if filepath.Base(exportLine) != "converted_image.png" {
		t.Fatalf("export path: %q", exportLine)
	}
	if _, err := os.Stat(exportLine); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}

	historyOut, err := runCommand(t, "--config", configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(historyOut, "PNG") {
		t.Fatalf("history missing conversion row:\n%s", historyOut)
	}
}

func TestConvertWebpReportsFallback(t *testing.T) {
	configPath := writeTestConfig(t)
	imagePath := writeTestImage(t)

	out, err := runCommand(t, "--config", configPath, "convert", imagePath, "--format", "webp")
	if err != nil {
		t.Fatalf("convert: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "encoded as JPEG instead") {
		t.Fatalf("expected fallback notice:\n%s", out)
	}
}

func TestStorePurchaseAndStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "store", "purchase", "pixelpress_monthly")
	if err != nil {
		t.Fatalf("purchase: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Purchase complete") {
		t.Fatalf("unexpected purchase output:\n%s", out)
	}

	statusOut, err := runCommand(t, "--config", configPath, "store", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(statusOut, "subscribed") || strings.Contains(statusOut, "not subscribed") {
		t.Fatalf("expected subscribed status:\n%s", statusOut)
	}
	if !strings.Contains(statusOut, "pixelpress_monthly") {
		t.Fatalf("expected active product:\n%s", statusOut)
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	configPath := writeTestConfig(t)
	imagePath := writeTestImage(t)

	_, err := runCommand(t, "--config", configPath, "convert", imagePath, "--format", "gif")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "jpg, jpeg, png, webp") {
		t.Fatalf("error must list the supported formats: %v", err)
	}
}
