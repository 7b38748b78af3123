package dto

// WorkspaceDir is a directory in the workspace scope
type WorkspaceDir struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

// WorkspaceAccess is the answer to a scope check
type WorkspaceAccess struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}
