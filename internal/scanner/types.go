package scanner

// ScanInfo summarizes one directory scan
type ScanInfo struct {
	Path          string  `json:"path,omitempty"`
	FilesFound    int     `json:"files_found"`
	RecoveryFiles int     `json:"recovery_files"`
	SourceFiles   int     `json:"source_files"`
	LastError     *string `json:"last_error,omitempty"`
}
