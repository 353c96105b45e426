package executionresults

type GenerationResult struct {
	Success             bool
	RepoPath            string
	ScanArgs            []string
	ScanExitCode        int
	ScanResultsFilename string
	OutputFilename      string
	FileCount           int
	BinaryCount         int
}
