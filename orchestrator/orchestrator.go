// Package orchestrator runs the external scanner over a repository and
// writes the combined dependency report.
package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/message"

	"dependency-checker/types/config"
	"dependency-checker/types/executionresults"
	"dependency-checker/types/scanreport"
)

// ErrScannerFailed wraps a non-zero exit of the scanning tool.
var ErrScannerFailed = errors.New("scanner failed")

type Orchestrator struct {
	cfg config.Config
}

func New(cfg config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// ScanArgs returns the full scanner command line for one repository.
func (o *Orchestrator) ScanArgs(repoPath, scanResultsFilename string) []string {
	processes := o.cfg.Settings.ScanProcesses
	if processes <= 0 {
		processes = 4
	}
	args := strings.Fields(o.cfg.Config.ScancodeCommand)
	args = append(args,
		"--package",
		"--json", scanResultsFilename,
		repoPath,
		"--processes", strconv.Itoa(processes),
		"--license",
		"--copyright",
		"--classify",
	)
	return args
}

// GenerateReport scans repoPath, appends the binaries found under it and
// writes the result to outputPath. Nothing is written when the scanner fails.
func (o *Orchestrator) GenerateReport(ctx context.Context, repoPath, outputPath string) (result executionresults.GenerationResult, err error) {
	log.Print("GenerateReport:: Enter()")
	result.RepoPath = repoPath
	result.OutputFilename = outputPath

	info, err := os.Stat(repoPath)
	if err != nil {
		return result, fmt.Errorf("GenerateReport:: cannot read repository path: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("GenerateReport:: %s is not a directory", repoPath)
	}

	scanResultsFilename, err := o.newScanResultsFilename()
	if err != nil {
		return result, err
	}
	result.ScanResultsFilename = scanResultsFilename
	if !o.cfg.Settings.KeepScanResults {
		defer func() {
			if rmErr := os.Remove(scanResultsFilename); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("GenerateReport:: Could not delete scan result: %s. Error: %v", scanResultsFilename, rmErr)
			}
		}()
	}

	log.Print("Scanning repository...")
	if err := o.ExecuteScanner(ctx, repoPath, scanResultsFilename, &result); err != nil {
		return result, err
	}
	log.Printf("Scan completed. Results saved in %s", scanResultsFilename)

	if err := GenerateFinalJSON(scanResultsFilename, repoPath, outputPath, o.cfg.Config.BinaryExtensions, &result); err != nil {
		return result, err
	}

	result.Success = true
	log.Print("GenerateReport:: Exit()")
	return result, nil
}

func (o *Orchestrator) newScanResultsFilename() (string, error) {
	scanResultsPath := o.cfg.Config.ScanResultsDir
	if scanResultsPath == "" {
		scanResultsPath = "scanResults"
	}
	if err := os.MkdirAll(scanResultsPath, os.ModePerm); err != nil {
		return "", fmt.Errorf("GenerateReport:: Failed to create %s: %w", scanResultsPath, err)
	}
	return filepath.Join(scanResultsPath, fmt.Sprintf("%s.json", uuid.New().String())), nil
}

// ExecuteScanner runs the scanner and waits for it without a timeout. The
// scanner's stdout is forwarded to the log line by line.
func (o *Orchestrator) ExecuteScanner(ctx context.Context, repoPath, scanResultsFilename string, result *executionresults.GenerationResult) error {
	log.Print("ExecuteScanner:: Enter()")

	args := o.ScanArgs(repoPath, scanResultsFilename)
	if len(args) == 0 {
		return errors.New("ExecuteScanner:: no scancode_command configured")
	}
	result.ScanArgs = args
	log.Printf("ExecuteScanner:: Executing: %v", args)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = os.Stderr

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("ExecuteScanner:: Failed to create stdout pipe: %v", err)
		return err
	}

	if err := cmd.Start(); err != nil {
		log.Printf("ExecuteScanner:: Failed to start cmd: %v", err)
		return fmt.Errorf("%w: %v", ErrScannerFailed, err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	for scanner.Scan() {
		log.Info(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		var exiterr *exec.ExitError
		if errors.As(err, &exiterr) {
			result.ScanExitCode = exiterr.ExitCode()
			log.Printf("ExecuteScanner:: Cmd exited with code: %d", result.ScanExitCode)
		}
		return fmt.Errorf("%w: %v", ErrScannerFailed, err)
	}

	log.Print("ExecuteScanner:: Cmd executed successfully")
	log.Print("ExecuteScanner:: Exit()")
	return nil
}

// ExtractBinaries walks repoPath and lists every file whose name ends with
// one of extensions. Matching is case-sensitive. Each directory's own files
// come before anything below it, in the order the filesystem lists them.
func ExtractBinaries(repoPath string, extensions []string) ([]scanreport.BinaryEntry, error) {
	binaries := []scanreport.BinaryEntry{}
	if err := walkTopDown(repoPath, func(dir string, entry os.DirEntry) {
		if hasBinaryExtension(entry.Name(), extensions) {
			binaries = append(binaries, scanreport.BinaryEntry{
				FileName: entry.Name(),
				FilePath: filepath.Join(dir, entry.Name()),
			})
		}
	}); err != nil {
		return nil, fmt.Errorf("ExtractBinaries:: Error walking through %s: %w", repoPath, err)
	}
	return binaries, nil
}

// walkTopDown calls visit for the files of dir, then descends into its
// subdirectories. Entries are not sorted and symlinked directories are not
// followed.
func walkTopDown(dir string, visit func(dir string, entry os.DirEntry)) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	entries, err := f.ReadDir(-1)
	f.Close()
	if err != nil {
		return err
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, entry.Name()))
			continue
		}
		visit(dir, entry)
	}
	for _, sub := range subdirs {
		if err := walkTopDown(sub, visit); err != nil {
			return err
		}
	}
	return nil
}

func hasBinaryExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// GenerateFinalJSON adds the binaries under repoPath to the scanner output
// and writes the combined document to outputPath.
func GenerateFinalJSON(scanResultsFilename, repoPath, outputPath string, extensions []string, result *executionresults.GenerationResult) error {
	log.Print("GenerateFinalJSON:: Enter()")

	data, err := os.ReadFile(scanResultsFilename)
	if err != nil {
		return fmt.Errorf("GenerateFinalJSON:: Error reading scan result: %w", err)
	}

	var document ScanDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("GenerateFinalJSON:: Error unmarshaling scan result %s: %w", scanResultsFilename, err)
	}

	binaries, err := ExtractBinaries(repoPath, extensions)
	if err != nil {
		return err
	}
	if err := document.Set("binaries", binaries); err != nil {
		return err
	}

	result.FileCount = document.FileCount()
	result.BinaryCount = len(binaries)
	p := message.NewPrinter(message.MatchLanguage("en"))
	log.Printf("GenerateFinalJSON:: Files scanned: %s, binaries found: %s", p.Sprintf("%d", result.FileCount), p.Sprintf("%d", result.BinaryCount))

	if err := writeJSONToFile(outputPath, document); err != nil {
		return fmt.Errorf("GenerateFinalJSON:: Failed to write %s: %w", outputPath, err)
	}
	log.Printf("Final JSON file generated: %s", outputPath)
	log.Print("GenerateFinalJSON:: Exit()")
	return nil
}

func writeJSONToFile(filePath string, data interface{}) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func(file *os.File) {
		if cerr := file.Close(); cerr != nil {
			log.Printf("writeJSONToFile:: Unable to close destination file. ERROR: %v", cerr)
			if err == nil {
				err = cerr
			}
		}
	}(file)

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ") // Pretty print JSON
	return encoder.Encode(data)
}
