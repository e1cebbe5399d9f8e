// Package tool processes the fixed set of XML tool tags a node's raw LLM
// output may contain — file and directory operations, package/tool
// installs, and sandboxed shell commands — in the same fixed evaluation
// order every time, so two runs over identical output touch the
// filesystem identically regardless of tag position.
package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/relsen/agentgraph/emit"
)

// Result accumulates what a ProcessAll call did, mirroring the fixed
// result buckets tool blocks report into.
type Result struct {
	FilesCreated       []string
	FilesDeleted       []string
	DirsCreated        []string
	CommandsRun        []string
	PackagesInstalled  []string
	Errors             []string
}

// Processor extracts and executes tool tags against a sandboxed base
// directory, reporting progress through an Emitter.
type Processor struct {
	BaseDir string
	Emit    emit.Emitter
	RunID   string
	NodeID  string

	commandTimeout time.Duration
	installTimeout time.Duration
}

// New returns a Processor rooted at baseDir (defaults to the process cwd
// when empty) with the original's default timeouts: 120s for
// run_command, 300s for package installs and builds.
func New(baseDir string, emitter emit.Emitter, runID, nodeID string) *Processor {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	abs, err := filepath.Abs(baseDir)
	if err == nil {
		baseDir = abs
	}
	return &Processor{
		BaseDir:        baseDir,
		Emit:           emitter,
		RunID:          runID,
		NodeID:         nodeID,
		commandTimeout: 120 * time.Second,
		installTimeout: 300 * time.Second,
	}
}

// safePath resolves path against p.BaseDir and rejects anything that
// would escape it via ".." traversal or an absolute path pointing
// elsewhere.
func (p *Processor) safePath(path string) (string, bool) {
	target := filepath.Clean(filepath.Join(p.BaseDir, path))
	rel, err := filepath.Rel(p.BaseDir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return target, true
}

func (p *Processor) log(message string) {
	if p.Emit == nil {
		return
	}
	p.Emit.Emit(emit.Event{
		Kind:      emit.KindLog,
		RunID:     p.RunID,
		NodeID:    p.NodeID,
		Timestamp: time.Now(),
		Message:   message,
	})
}

func (p *Processor) thought(content string) {
	if p.Emit == nil {
		return
	}
	p.Emit.Emit(emit.Event{
		Kind:      emit.KindThought,
		RunID:     p.RunID,
		NodeID:    p.NodeID,
		Timestamp: time.Now(),
		Message:   content,
	})
}

var codeFenceOpen = regexp.MustCompile("^```\\w*\\s*\\n?")
var codeFenceClose = regexp.MustCompile("\\n?```\\s*$")

func cleanContent(content string) string {
	content = strings.TrimSpace(content)
	content = codeFenceOpen.ReplaceAllString(content, "")
	content = codeFenceClose.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

var (
	reWriteFile      = regexp.MustCompile(`(?s)<write_file\s+path=["'](.*?)["']>(.*?)</write_file>`)
	reReadFile       = regexp.MustCompile(`<read_file\s+path=["'](.*?)["']\s*/>`)
	reListDir        = regexp.MustCompile(`<list_dir\s+path=["'](.*?)["']\s*/>`)
	reCreateDir      = regexp.MustCompile(`<create_dir\s+path=["'](.*?)["']\s*/>`)
	reDeleteFile     = regexp.MustCompile(`<delete_file\s+path=["'](.*?)["']\s*/>`)
	reDeleteDir      = regexp.MustCompile(`<delete_dir\s+path=["'](.*?)["']\s*/>`)
	reAppendFile     = regexp.MustCompile(`(?s)<append_file\s+path=["'](.*?)["']>(.*?)</append_file>`)
	reCopy           = regexp.MustCompile(`<copy\s+path=["'](.*?)["']\s+to=["'](.*?)["']\s*/>`)
	reMove           = regexp.MustCompile(`<move\s+path=["'](.*?)["']\s+to=["'](.*?)["']\s*/>`)
	reInstallPackage = regexp.MustCompile(`<install_package\s+name=["'](.*?)["'](?:\s+manager=["'](.*?)["'])?\s*/>`)
	reInstallTool    = regexp.MustCompile(`<install_tool\s+name=["'](.*?)["']\s*/>`)
	reRunCommand     = regexp.MustCompile(`<run_command\s+command=["'](.*?)["'](?:\s+timeout=["'](\d+)["'])?\s*/>`)
	reRunBuild       = regexp.MustCompile(`<run_build(?:\s+command=["'](.*?)["'])?\s*/>`)
)

// ProcessAll walks output through every tag handler in the fixed order:
// write, read, list_dir, create_dir, delete_file, delete_dir, append,
// copy, move, install_package, install_tool, run_command, run_build.
func (p *Processor) ProcessAll(ctx context.Context, output string) Result {
	var r Result
	p.processWriteFile(output, &r)
	p.processReadFile(ctx, output)
	p.processListDir(output)
	p.processCreateDir(output, &r)
	p.processDeleteFile(output, &r)
	p.processDeleteDir(output)
	p.processAppendFile(output)
	p.processCopy(output)
	p.processMove(output)
	p.processInstallPackage(ctx, output, &r)
	p.processInstallTool(ctx, output, &r)
	p.processRunCommand(ctx, output, &r)
	p.processRunBuild(ctx, output)
	return r
}

func (p *Processor) processWriteFile(output string, r *Result) {
	for _, m := range reWriteFile.FindAllStringSubmatch(output, -1) {
		path, content := m[1], cleanContent(m[2])
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked write to " + path)
			r.Errors = append(r.Errors, "blocked write: "+path)
			continue
		}
		if content == "" {
			p.log("skipped empty file: " + path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			p.log("write error: " + err.Error())
			r.Errors = append(r.Errors, err.Error())
			continue
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			p.log("write error: " + err.Error())
			r.Errors = append(r.Errors, err.Error())
			continue
		}
		p.log("created/updated: " + path)
		r.FilesCreated = append(r.FilesCreated, path)
	}
}

func (p *Processor) processReadFile(ctx context.Context, output string) {
	for _, m := range reReadFile.FindAllStringSubmatch(output, -1) {
		path := m[1]
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked read of " + path)
			continue
		}
		data, err := os.ReadFile(target)
		if err != nil {
			p.log("file not found: " + path)
			continue
		}
		preview := string(data)
		truncated := ""
		if len(preview) > 2000 {
			preview = preview[:2000]
			truncated = "\n*(truncated...)*"
		}
		p.thought("READ FILE: " + path + "\n" + preview + truncated)
		p.log("read: " + path)
	}
}

func (p *Processor) processListDir(output string) {
	for _, m := range reListDir.FindAllStringSubmatch(output, -1) {
		path := m[1]
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked list of " + path)
			continue
		}
		entries, err := os.ReadDir(target)
		if err != nil {
			p.log("directory not found: " + path)
			continue
		}
		var b strings.Builder
		for _, e := range entries {
			marker := "file"
			if e.IsDir() {
				marker = "dir"
			}
			b.WriteString("- [" + marker + "] " + e.Name() + "\n")
		}
		p.thought("LIST DIR: " + path + "\n" + b.String())
		p.log("listed: " + path + " (" + strconv.Itoa(len(entries)) + " items)")
	}
}

func (p *Processor) processCreateDir(output string, r *Result) {
	for _, m := range reCreateDir.FindAllStringSubmatch(output, -1) {
		path := m[1]
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked mkdir " + path)
			continue
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			p.log("mkdir error: " + err.Error())
			continue
		}
		p.log("created directory: " + path)
		r.DirsCreated = append(r.DirsCreated, path)
	}
}

func (p *Processor) processDeleteFile(output string, r *Result) {
	for _, m := range reDeleteFile.FindAllStringSubmatch(output, -1) {
		path := m[1]
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked delete " + path)
			continue
		}
		info, err := os.Stat(target)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(target); err != nil {
			p.log("delete error: " + err.Error())
			continue
		}
		p.log("deleted file: " + path)
		r.FilesDeleted = append(r.FilesDeleted, path)
	}
}

func (p *Processor) processDeleteDir(output string) {
	for _, m := range reDeleteDir.FindAllStringSubmatch(output, -1) {
		path := m[1]
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked rmdir " + path)
			continue
		}
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			p.log("rmdir error: " + err.Error())
			continue
		}
		p.log("deleted directory: " + path)
	}
}

func (p *Processor) processAppendFile(output string) {
	for _, m := range reAppendFile.FindAllStringSubmatch(output, -1) {
		path, content := m[1], strings.TrimSpace(m[2])
		target, ok := p.safePath(path)
		if !ok {
			p.log("blocked append to " + path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			p.log("append error: " + err.Error())
			continue
		}
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			p.log("append error: " + err.Error())
			continue
		}
		_, writeErr := f.WriteString(content + "\n")
		f.Close()
		if writeErr != nil {
			p.log("append error: " + writeErr.Error())
			continue
		}
		p.log("appended to: " + path)
	}
}

func (p *Processor) processCopy(output string) {
	for _, m := range reCopy.FindAllStringSubmatch(output, -1) {
		src, dst := m[1], m[2]
		srcPath, ok1 := p.safePath(src)
		dstPath, ok2 := p.safePath(dst)
		if !ok1 || !ok2 {
			p.log("blocked copy")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			p.log("copy error: " + err.Error())
			continue
		}
		if err := copyPath(srcPath, dstPath); err != nil {
			p.log("copy error: " + err.Error())
			continue
		}
		p.log("copied: " + src + " -> " + dst)
	}
}

func (p *Processor) processMove(output string) {
	for _, m := range reMove.FindAllStringSubmatch(output, -1) {
		src, dst := m[1], m[2]
		srcPath, ok1 := p.safePath(src)
		dstPath, ok2 := p.safePath(dst)
		if !ok1 || !ok2 {
			p.log("blocked move")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			p.log("move error: " + err.Error())
			continue
		}
		if err := os.Rename(srcPath, dstPath); err != nil {
			p.log("move error: " + err.Error())
			continue
		}
		p.log("moved: " + src + " -> " + dst)
	}
}

var packageManagerCommands = map[string]string{
	"npm":  "npm install ",
	"yarn": "yarn add ",
	"pip":  "pip install ",
	"pnpm": "pnpm add ",
}

func (p *Processor) processInstallPackage(ctx context.Context, output string, r *Result) {
	for _, m := range reInstallPackage.FindAllStringSubmatch(output, -1) {
		pkg, manager := m[1], m[2]
		if manager == "" {
			manager = "npm"
		}
		prefix, ok := packageManagerCommands[manager]
		if !ok {
			prefix = packageManagerCommands["npm"]
		}
		p.log("installing: " + pkg + " via " + manager)
		_, _, err := p.runShell(ctx, prefix+pkg, p.installTimeout)
		if err != nil {
			p.log("install error: " + err.Error())
			continue
		}
		p.log("installed: " + pkg)
		r.PackagesInstalled = append(r.PackagesInstalled, pkg)
	}
}

// ApprovedTool describes a package the install_tool tag may pull in;
// unlike install_package, install_tool only acts against a fixed
// allow-list rather than any caller-supplied name.
type ApprovedTool struct {
	Type    string // "npm", "pip", or "system"
	Package string
}

// ApprovedTools is the allow-list install_tool consults. System-type
// entries require a manual install and are only logged, never executed.
var ApprovedTools = map[string]ApprovedTool{
	"typescript": {Type: "npm", Package: "typescript"},
	"eslint":     {Type: "npm", Package: "eslint"},
	"prettier":   {Type: "npm", Package: "prettier"},
	"pytest":     {Type: "pip", Package: "pytest"},
	"ruff":       {Type: "pip", Package: "ruff"},
}

func (p *Processor) processInstallTool(ctx context.Context, output string, r *Result) {
	for _, m := range reInstallTool.FindAllStringSubmatch(output, -1) {
		name := m[1]
		info, ok := ApprovedTools[name]
		if !ok {
			p.log("tool not approved: " + name)
			continue
		}
		if info.Type == "system" {
			p.log(name + " requires manual install")
			continue
		}
		cmd := "npm install " + info.Package
		if info.Type == "pip" {
			cmd = "pip install " + info.Package
		}
		p.log("installing tool: " + name)
		if _, _, err := p.runShell(ctx, cmd, p.installTimeout); err != nil {
			p.log("tool install error: " + err.Error())
			continue
		}
		p.log("tool installed: " + name)
		r.PackagesInstalled = append(r.PackagesInstalled, name)
	}
}

// dangerousCommandGlobs extends the fixed literal blocklist with
// doublestar glob patterns, so a command matching e.g. "rm -rf /*" or
// "chmod -R 777 /**" is caught alongside the exact original phrases.
var dangerousCommandLiterals = []string{
	"rm -rf /", "mkfs", "dd if=/dev/", ":(){", "chmod -r 777 /",
}

var dangerousCommandGlobs = []string{
	"rm -rf /*", "rm -rf ~*", "*>/dev/sd*", "chmod -r 777 /**", "curl*|*sh",
}

func isDangerousCommand(cmd string) bool {
	lower := strings.ToLower(cmd)
	for _, literal := range dangerousCommandLiterals {
		if strings.Contains(lower, literal) {
			return true
		}
	}
	for _, pattern := range dangerousCommandGlobs {
		if ok, _ := doublestar.Match(pattern, lower); ok {
			return true
		}
	}
	return false
}

func (p *Processor) processRunCommand(ctx context.Context, output string, r *Result) {
	for _, m := range reRunCommand.FindAllStringSubmatch(output, -1) {
		cmd := m[1]
		timeout := p.commandTimeout
		if m[2] != "" {
			if secs, err := strconv.Atoi(m[2]); err == nil {
				timeout = time.Duration(secs) * time.Second
			}
		}
		if isDangerousCommand(cmd) {
			preview := cmd
			if len(preview) > 50 {
				preview = preview[:50]
			}
			p.log("blocked dangerous command: " + preview)
			continue
		}
		p.log("executing: " + cmd)
		stdout, stderr, err := p.runShell(ctx, cmd, timeout)
		if err != nil {
			p.log("command error: " + err.Error())
			continue
		}
		result := strings.TrimSpace(stdout)
		if result == "" {
			result = strings.TrimSpace(stderr)
		}
		if result == "" {
			result = "success (no output)"
		}
		if len(result) > 2000 {
			result = result[:2000]
		}
		p.thought("COMMAND: " + cmd + "\n" + result)
		r.CommandsRun = append(r.CommandsRun, cmd)
	}
}

func (p *Processor) processRunBuild(ctx context.Context, output string) {
	for _, m := range reRunBuild.FindAllStringSubmatch(output, -1) {
		cmd := m[1]
		if cmd == "" {
			cmd = "npm run build"
		}
		p.log("running build: " + cmd)
		_, stderr, err := p.runShell(ctx, cmd, p.installTimeout)
		if err != nil {
			p.log("build error: " + err.Error())
			continue
		}
		if stderr != "" {
			msg := stderr
			if len(msg) > 500 {
				msg = msg[:500]
			}
			p.log("build failed: " + msg)
			continue
		}
		p.log("build complete")
	}
}

func (p *Processor) runShell(ctx context.Context, cmd string, timeout time.Duration) (stdout, stderr string, err error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c := exec.CommandContext(runCtx, "sh", "-c", cmd)
	c.Dir = p.BaseDir
	var outBuf, errBuf strings.Builder
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	runErr := c.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", "", runCtx.Err()
	}
	return outBuf.String(), errBuf.String(), runErr
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, info.Mode())
	}
	return filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, fi.Mode())
	})
}
