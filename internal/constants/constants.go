package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "covscan"

	// ConfigFileName is the file written by `covscan init`
	ConfigFileName = "covscan.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "COVSCAN"
)

// ConfigFileCandidates lists config file names in discovery order
var ConfigFileCandidates = []string{
	"covscan.yaml",
	"covscan.yml",
	".covscan.yaml",
	".covscan.yml",
	"covscan.toml",
	".covscan.toml",
	"covscan.json",
	".covscan.json",
}

// Output format constants
const (
	OutputFormatText  = "text"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatSARIF = "sarif"
	OutputFormatCSV   = "csv"
)

// OutputFormats lists every supported output format
var OutputFormats = []string{
	OutputFormatText,
	OutputFormatJSON,
	OutputFormatYAML,
	OutputFormatSARIF,
	OutputFormatCSV,
}

// IsValidOutputFormat reports whether format is supported
func IsValidOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// SARIF constants
const (
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)
