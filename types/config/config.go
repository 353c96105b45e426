package config

type Config struct {
	Settings struct {
		LogLevel        string `yaml:"logLevel"`
		LogFile         string `yaml:"log_file"`
		KeepScanResults bool   `yaml:"keep_scan_results"`
		ScanProcesses   int    `yaml:"scan_processes"`
		RequestTimeout  int    `yaml:"request_timeout"`
	} `yaml:"settings"`
	Config struct {
		ScancodeCommand  string   `yaml:"scancode_command"`
		ScanResultsDir   string   `yaml:"scan_results_dir"`
		OutputFilename   string   `yaml:"output_filename"`
		NuGetEndpoint    string   `yaml:"nuget_endpoint"`
		PyPIEndpoint     string   `yaml:"pypi_endpoint"`
		BinaryExtensions []string `yaml:"binary_extensions"`
	} `yaml:"config"`
}

// Default returns the configuration used when no config.yaml is present.
func Default() Config {
	cfg := Config{}
	cfg.Settings.LogLevel = "info"
	cfg.Settings.LogFile = "dependency-checker.log"
	cfg.Settings.ScanProcesses = 4
	cfg.Settings.RequestTimeout = 10
	cfg.Config.ScancodeCommand = "scancode"
	cfg.Config.ScanResultsDir = "scanResults"
	cfg.Config.OutputFilename = "dependencies_report.json"
	cfg.Config.NuGetEndpoint = "https://api.nuget.org/v3-flatcontainer"
	cfg.Config.PyPIEndpoint = "https://pypi.org/pypi"
	cfg.Config.BinaryExtensions = []string{".dll", ".exe", ".so", ".bin", ".a", ".lib"}
	return cfg
}
