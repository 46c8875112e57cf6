//go:build ignore

// build.go - ARK Shop Config Generator build system
// Usage: go run build.go [-target=TARGET]
// Targets: build, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	module  = "github.com/jonxmitchell/ark-asa-shop-config-generator"
	binary  = "shopconfig"
	distDir = "dist"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	Version string
	// Secret replaces the development signing secret. Release builds must set it.
	Secret string
	GOOS   string
	GOARCH string
}

var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "", "Version stamped into the binary")
	goos := flag.String("os", runtime.GOOS, "Target operating system")
	goarch := flag.String("arch", runtime.GOARCH, "Target architecture")
	flag.Parse()

	if runtime.GOOS == "windows" {
		colorReset, colorRed, colorGreen, colorYellow, colorCyan = "", "", "", "", ""
	}

	ctx := &BuildContext{
		Verbose: *verbose,
		Version: *version,
		Secret:  os.Getenv("SHOPCFG_SIGNING_SECRET"),
		GOOS:    *goos,
		GOARCH:  *goarch,
	}

	start := time.Now()
	var err error
	switch *target {
	case "build":
		err = build(ctx)
	case "test":
		err = runTests(ctx)
	case "clean":
		err = clean()
	case "release":
		err = release(ctx)
	default:
		printError(fmt.Sprintf("unknown target %q", *target))
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s[INFO]%s %s\n", colorCyan, colorReset, msg) }
func printSuccess(msg string) { fmt.Printf("%s[OK]%s %s\n", colorGreen, colorReset, msg) }
func printError(msg string)   { fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg) }
func printWarning(msg string) { fmt.Printf("%s[WARN]%s %s\n", colorYellow, colorReset, msg) }

func ldflags(ctx *BuildContext) string {
	flags := []string{"-s", "-w"}
	if ctx.Version != "" {
		flags = append(flags, fmt.Sprintf("-X %s/internal/config.AppVersion=%s", module, ctx.Version))
	}
	if ctx.Secret != "" {
		flags = append(flags, fmt.Sprintf("-X %s/internal/license.embeddedSecret=%s", module, ctx.Secret))
	}
	return strings.Join(flags, " ")
}

func outputPath(ctx *BuildContext) string {
	name := binary
	if ctx.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(distDir, ctx.GOOS+"_"+ctx.GOARCH, name)
}

func build(ctx *BuildContext) error {
	if ctx.Secret == "" {
		printWarning("SHOPCFG_SIGNING_SECRET not set; using the development signing secret")
	}
	out := outputPath(ctx)
	printInfo(fmt.Sprintf("Building %s for %s/%s...", binary, ctx.GOOS, ctx.GOARCH))

	args := []string{"build", "-trimpath", "-ldflags", ldflags(ctx), "-o", out, "./cmd/" + binary}
	if ctx.Verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		cmd.Stdout = os.Stdout
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s: %w", binary, err)
	}

	if info, err := os.Stat(out); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(ctx *BuildContext) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	return nil
}

func clean() error {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("clean %s: %w", distDir, err)
	}
	return nil
}

// release builds every supported platform and refuses to ship the
// development secret.
func release(ctx *BuildContext) error {
	if ctx.Secret == "" {
		return fmt.Errorf("release builds require SHOPCFG_SIGNING_SECRET")
	}
	if ctx.Version == "" {
		return fmt.Errorf("release builds require -version")
	}
	if err := runTests(ctx); err != nil {
		return err
	}
	for _, p := range [][2]string{{"windows", "amd64"}, {"linux", "amd64"}, {"darwin", "arm64"}} {
		c := *ctx
		c.GOOS, c.GOARCH = p[0], p[1]
		if err := build(&c); err != nil {
			return err
		}
	}
	return nil
}
