package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"oxygen/telemetry/log"
)

const sampleDoc = `{
	"textures": [{"name": "albedo"}],
	"materials": [{"name": "brick"}],
	"meshes": [{"name": "cube"}],
	"scene": {"name": "main", "meshes": ["cube"], "materials": ["brick"]}
}`

func writeManifest(t *testing.T, sourcePaths ...string) string {
	t.Helper()
	dir := t.TempDir()
	var body string
	for _, p := range sourcePaths {
		body += "  - path: " + p + "\n"
	}
	manifestPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("sources:\n"+body), 0o644))
	return manifestPath
}

func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))
	return path
}

func TestExecuteCooksManifestSuccessfully(t *testing.T) {
	manifest := writeManifest(t, writeSourceFile(t))
	report, err := execute(context.Background(), flags{manifest: manifest, maxInFlight: 4}, log.Nop())
	require.NoError(t, err)
	require.Equal(t, 4, report.Succeeded)
	require.Equal(t, 0, report.Failed)
	require.Empty(t, report.Warnings)
}

func TestExecuteDryRunSkipsCooking(t *testing.T) {
	manifest := writeManifest(t, writeSourceFile(t))
	report, err := execute(context.Background(), flags{manifest: manifest, dryRun: true}, log.Nop())
	require.NoError(t, err)
	require.True(t, report.DryRun)
	require.Equal(t, 4, report.Succeeded)
}

func TestExecuteMissingManifestFails(t *testing.T) {
	_, err := execute(context.Background(), flags{manifest: "/nonexistent/manifest.yaml"}, log.Nop())
	require.Error(t, err)
}

func TestExecuteReportsDanglingPrerequisiteAsWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	doc := `{"textures": [], "materials": [{"name": "brick"}], "meshes": [],
		"scene": {"name": "main", "meshes": ["missing_mesh"], "materials": ["brick"]}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	manifest := writeManifest(t, path)

	report, err := execute(context.Background(), flags{manifest: manifest, maxInFlight: 2}, log.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, report.Warnings)
}

func TestMainEExitsZeroOnSuccess(t *testing.T) {
	manifest := writeManifest(t, writeSourceFile(t))
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	code := mainE([]string{"--manifest", manifest}, w, w)
	w.Close()
	require.Equal(t, 0, code)
}

func TestMainEExitsTwoOnMissingManifestFlag(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	code := mainE([]string{}, w, w)
	w.Close()
	require.Equal(t, 2, code)
}
