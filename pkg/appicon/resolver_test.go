package appicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KyleBrandon/neo/pkg/sysexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner dispatches commands to per-utility handlers and records every call.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(args []string) (sysexec.Result, error)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handlers: make(map[string]func([]string) (sysexec.Result, error))}
}

func (f *fakeRunner) on(name string, h func(args []string) (sysexec.Result, error)) {
	f.handlers[name] = h
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (sysexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	h, ok := f.handlers[name]
	f.mu.Unlock()

	if !ok {
		return sysexec.Result{}, errors.New("executable file not found in $PATH")
	}
	return h(args)
}

func (f *fakeRunner) callsTo(name string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []call
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func stdout(s string) func([]string) (sysexec.Result, error) {
	return func([]string) (sysexec.Result, error) {
		return sysexec.Result{Stdout: []byte(s)}, nil
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sipsWriting fakes a successful sips run that writes a width x height PNG to the --out path.
func sipsWriting(t *testing.T, width, height int) func([]string) (sysexec.Result, error) {
	data := encodePNG(t, width, height)
	return func(args []string) (sysexec.Result, error) {
		out := args[len(args)-1]
		if err := os.WriteFile(out, data, 0644); err != nil {
			return sysexec.Result{}, err
		}
		return sysexec.Result{Stdout: []byte(out + "\n")}, nil
	}
}

// makeBundle creates dir/<name>.app with the given icon resource and returns the bundle path.
func makeBundle(t *testing.T, dir, name, icon string) string {
	t.Helper()

	bundle := filepath.Join(dir, name+".app")
	resources := filepath.Join(bundle, "Contents", "Resources")
	require.NoError(t, os.MkdirAll(resources, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "Contents", "Info.plist"), []byte("<plist/>"), 0644))
	if icon != "" {
		require.NoError(t, os.WriteFile(filepath.Join(resources, icon), []byte("icns"), 0644))
	}

	return bundle
}

type fixture struct {
	runner  *fakeRunner
	apps    string
	tempDir string
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		runner:  newFakeRunner(),
		apps:    t.TempDir(),
		tempDir: t.TempDir(),
	}
}

func (fx *fixture) resolver(opts ...Option) *Resolver {
	base := []Option{
		WithRunner(fx.runner),
		WithTempDir(fx.tempDir),
		WithSearchDirs(filepath.Join(fx.apps, "missing"), fx.apps),
	}
	return NewResolver(append(base, opts...)...)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary icon files were left behind")
}

func decodeDataURL(t *testing.T, url string) image.Image {
	t.Helper()

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(url, prefix), "unexpected data url %q", url)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestResolve_CalculatorFromWellKnownDirectory(t *testing.T) {
	fx := newFixture(t)
	bundle := makeBundle(t, fx.apps, "Calculator", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("AppIcon\n"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	icon, err := fx.resolver().Resolve(context.Background(), "Calculator")
	require.NoError(t, err)

	assert.Equal(t, BundleLocation{Query: "Calculator", Path: bundle}, icon.Bundle)
	assert.Equal(t, filepath.Join(bundle, "Contents", "Resources", "AppIcon.icns"), icon.IconPath)
	assert.Equal(t, 32, icon.Asset.Width)
	assert.Equal(t, 32, icon.Asset.Height)

	img := decodeDataURL(t, icon.DataURL())
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	assert.Len(t, fx.runner.callsTo("mdfind"), 2)

	defaults := fx.runner.callsTo("defaults")
	require.Len(t, defaults, 1)
	assert.Equal(t, []string{"read", filepath.Join(bundle, "Contents", "Info.plist"), "CFBundleIconFile"}, defaults[0].args)

	sips := fx.runner.callsTo("sips")
	require.Len(t, sips, 1)
	assert.Equal(t, []string{"-s", "format", "png", "-z", "32", "32", icon.IconPath, "--out"}, sips[0].args[:8])
	assert.True(t, strings.HasPrefix(filepath.Base(sips[0].args[8]), "neo_icon_Calculator_"))

	assertNoTempFiles(t, fx.tempDir)
}

func TestResolve_DisplayNameSearchHit(t *testing.T) {
	fx := newFixture(t)
	indexed := makeBundle(t, t.TempDir(), "Visual Studio Code", "Code.icns")

	fx.runner.on("mdfind", stdout("/Users/me/readme.txt\n"+indexed+"\n/Other/Thing.app\n"))
	fx.runner.on("defaults", stdout("Code.icns\n"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	icon, err := fx.resolver().Resolve(context.Background(), "Visual Studio Code")
	require.NoError(t, err)

	assert.Equal(t, indexed, icon.Bundle.Path)
	mdfind := fx.runner.callsTo("mdfind")
	require.Len(t, mdfind, 1)
	assert.Equal(t, []string{"kMDItemDisplayName == 'Visual Studio Code' && kMDItemKind == 'Application'"}, mdfind[0].args)
}

func TestResolve_FileNameSearchHit(t *testing.T) {
	fx := newFixture(t)
	indexed := makeBundle(t, t.TempDir(), "Notes", "AppIcon.icns")

	fx.runner.on("mdfind", func(args []string) (sysexec.Result, error) {
		if strings.HasPrefix(args[0], "kMDItemFSName") {
			return sysexec.Result{Stdout: []byte(indexed + "\n")}, nil
		}
		return sysexec.Result{}, nil
	})
	fx.runner.on("defaults", stdout("AppIcon"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	icon, err := fx.resolver().Resolve(context.Background(), "Notes")
	require.NoError(t, err)

	assert.Equal(t, indexed, icon.Bundle.Path)
	mdfind := fx.runner.callsTo("mdfind")
	require.Len(t, mdfind, 2)
	assert.Equal(t, "kMDItemFSName == 'Notes.app' && kMDItemKind == 'Application'", mdfind[1].args[0])
}

func TestResolve_SearchUnavailableFallsBack(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Terminal", "Terminal.icns")

	// no mdfind handler: the fake reports it missing from PATH
	fx.runner.on("defaults", stdout("Terminal"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	icon, err := fx.resolver().Resolve(context.Background(), "Terminal")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.apps, "Terminal.app"), icon.Bundle.Path)
}

func TestResolve_SearchNonZeroExitFallsBack(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Terminal", "AppIcon.icns")

	fx.runner.on("mdfind", func([]string) (sysexec.Result, error) {
		return sysexec.Result{ExitCode: 1, Stderr: []byte("index disabled")}, nil
	})
	fx.runner.on("defaults", stdout(""))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	_, err := fx.resolver().Resolve(context.Background(), "Terminal")
	assert.NoError(t, err)
}

func TestResolve_AppNotFound(t *testing.T) {
	fx := newFixture(t)
	fx.runner.on("mdfind", stdout("/Users/me/Nothing.txt\n"))

	_, err := fx.resolver().Resolve(context.Background(), "Nonexistent App")
	assert.ErrorIs(t, err, ErrAppNotFound)
	assert.Empty(t, fx.runner.callsTo("defaults"))
	assert.Empty(t, fx.runner.callsTo("sips"))
}

func TestResolve_InvalidAppName(t *testing.T) {
	fx := newFixture(t)

	for _, name := range []string{"", "   ", "../../etc", "a/b", "..", "bad\x00name"} {
		_, err := fx.resolver().Resolve(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidAppName, "name %q", name)
	}
	assert.Empty(t, fx.runner.calls)
}

func TestResolve_EmptyIconAttributeUsesDefault(t *testing.T) {
	tests := []struct {
		name     string
		defaults func([]string) (sysexec.Result, error)
	}{
		{"empty output", stdout("\n")},
		{"key missing", func([]string) (sysexec.Result, error) {
			return sysexec.Result{ExitCode: 1, Stderr: []byte("The domain/default pair does not exist")}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			bundle := makeBundle(t, fx.apps, "Preview", "AppIcon.icns")

			fx.runner.on("mdfind", stdout(""))
			fx.runner.on("defaults", tt.defaults)
			fx.runner.on("sips", sipsWriting(t, 32, 32))

			icon, err := fx.resolver().Resolve(context.Background(), "Preview")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(bundle, "Contents", "Resources", "AppIcon.icns"), icon.IconPath)
		})
	}
}

func TestResolve_IconSuffixNotDuplicated(t *testing.T) {
	fx := newFixture(t)
	bundle := makeBundle(t, fx.apps, "Mail", "Mail.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("Mail.icns\n"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	icon, err := fx.resolver().Resolve(context.Background(), "Mail")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(bundle, "Contents", "Resources", "Mail.icns"), icon.IconPath)
}

func TestResolve_PlistReaderUnavailable(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Mail", "AppIcon.icns")
	fx.runner.on("mdfind", stdout(""))

	_, err := fx.resolver().Resolve(context.Background(), "Mail")
	assert.ErrorIs(t, err, ErrPlistRead)
}

func TestResolve_IconNotFound(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Mail", "")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("Mail"))

	_, err := fx.resolver().Resolve(context.Background(), "Mail")
	assert.ErrorIs(t, err, ErrIconNotFound)
	assert.Contains(t, err.Error(), "Mail.icns")
	assert.Empty(t, fx.runner.callsTo("sips"))
}

func TestResolve_ConversionFailed(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Mail", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout(""))
	fx.runner.on("sips", func(args []string) (sysexec.Result, error) {
		// leave a partial file behind like a crashing converter would
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0644)
		return sysexec.Result{ExitCode: 13, Stderr: []byte("Error: unable to read source\n")}, nil
	})

	_, err := fx.resolver().Resolve(context.Background(), "Mail")
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "unable to read source")
	assertNoTempFiles(t, fx.tempDir)
}

func TestResolve_ConverterUnavailable(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Mail", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout(""))

	_, err := fx.resolver().Resolve(context.Background(), "Mail")
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestResolve_ConverterWroteGarbage(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Mail", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout(""))
	fx.runner.on("sips", func(args []string) (sysexec.Result, error) {
		return sysexec.Result{}, os.WriteFile(args[len(args)-1], []byte("not a png"), 0644)
	})

	_, err := fx.resolver().Resolve(context.Background(), "Mail")
	assert.ErrorIs(t, err, ErrConversionFailed)
	assertNoTempFiles(t, fx.tempDir)
}

func TestResolve_NormalizesOversizedOutput(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Photos", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("AppIcon"))
	fx.runner.on("sips", sipsWriting(t, 128, 96))

	icon, err := fx.resolver().Resolve(context.Background(), "Photos")
	require.NoError(t, err)

	img := decodeDataURL(t, icon.DataURL())
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
}

func TestResolve_CustomIconSize(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Photos", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("AppIcon"))
	fx.runner.on("sips", sipsWriting(t, 64, 64))

	icon, err := fx.resolver(WithIconSize(64)).Resolve(context.Background(), "Photos")
	require.NoError(t, err)

	assert.Equal(t, 64, icon.Asset.Width)
	sips := fx.runner.callsTo("sips")
	require.Len(t, sips, 1)
	assert.Equal(t, []string{"-z", "64", "64"}, sips[0].args[3:6])
}

func TestResolve_ConcurrentSameNameUseDistinctTempFiles(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Safari", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("AppIcon"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	r := fx.resolver()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "Safari")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, c := range fx.runner.callsTo("sips") {
		out := c.args[len(c.args)-1]
		assert.False(t, seen[out], "temp file %s reused", out)
		seen[out] = true
	}
	assert.Len(t, seen, 8)
	assertNoTempFiles(t, fx.tempDir)
}

func TestResolve_TempFileRemovalFailureIgnored(t *testing.T) {
	fx := newFixture(t)
	makeBundle(t, fx.apps, "Notes", "AppIcon.icns")

	fx.runner.on("mdfind", stdout(""))
	fx.runner.on("defaults", stdout("AppIcon"))
	fx.runner.on("sips", sipsWriting(t, 32, 32))

	var removed []string
	r := fx.resolver()
	r.remove = func(path string) error {
		removed = append(removed, path)
		return os.ErrPermission
	}

	icon, err := r.Resolve(context.Background(), "Notes")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(icon.DataURL(), "data:image/png;base64,"))

	sips := fx.runner.callsTo("sips")
	require.Len(t, sips, 1)
	assert.Equal(t, []string{sips[0].args[len(sips[0].args)-1]}, removed)
}

func TestNewResolver_SearchDirsAreCopied(t *testing.T) {
	original := DefaultSearchDirs[0]
	t.Cleanup(func() { DefaultSearchDirs[0] = original })

	r := NewResolver()
	DefaultSearchDirs[0] = "/tmp/elsewhere"
	assert.Equal(t, "/Applications", r.searchDirs[0])

	dirs := []string{"/a", "/b"}
	r = NewResolver(WithSearchDirs(dirs...))
	dirs[0] = "/changed"
	assert.Equal(t, []string{"/a", "/b"}, r.searchDirs)
}

func TestEscapeQueryValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Calculator", "Calculator"},
		{"Bob's App", `Bob\'s App`},
		{`x' || kMDItemKind == '*`, `x\' || kMDItemKind == \'\*`},
		{`back\slash "quoted"`, `back\\slash \"quoted\"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeQueryValue(tt.in))
	}
}

func TestResolve_QueryIsEscaped(t *testing.T) {
	fx := newFixture(t)
	fx.runner.on("mdfind", stdout(""))

	_, err := fx.resolver().Resolve(context.Background(), "Bob's App")
	require.ErrorIs(t, err, ErrAppNotFound)

	mdfind := fx.runner.callsTo("mdfind")
	require.Len(t, mdfind, 2)
	assert.Equal(t, `kMDItemDisplayName == 'Bob\'s App' && kMDItemKind == 'Application'`, mdfind[0].args[0])
	assert.Equal(t, `kMDItemFSName == 'Bob\'s App.app' && kMDItemKind == 'Application'`, mdfind[1].args[0])
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Visual_Studio_Code", sanitizeFileName("Visual Studio Code"))
	assert.Equal(t, "Bob_s_App", sanitizeFileName("Bob's App"))
	assert.Equal(t, "a_b", sanitizeFileName("a\\b"))
}
