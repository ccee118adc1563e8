package nativehost

// Version is reported by ping.
const Version = "1.2.0"

const (
	ActionPing           = "ping"
	ActionWriteFile      = "write_file"
	ActionPickFolder     = "pick_folder"
	ActionCallLocalModel = "call_local_model"
)

type Request struct {
	Action  string `json:"action"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`

	// call_local_model
	System    string `json:"system,omitempty"`
	User      string `json:"user,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
	Name    string `json:"name,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Response {
	return Response{Success: false, Error: msg}
}
