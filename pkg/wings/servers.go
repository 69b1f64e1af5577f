package wings

import (
	"context"
	"net/url"
	"strconv"
)

// PowerAction is a server power signal.
type PowerAction string

const (
	PowerStart   PowerAction = "start"
	PowerStop    PowerAction = "stop"
	PowerRestart PowerAction = "restart"
	PowerKill    PowerAction = "kill"
)

// DefaultPowerWait is how long the node waits for a power action.
const DefaultPowerWait = 30

// ServerService wraps the per-server endpoints. Every method validates
// the server uuid before dispatching.
type ServerService struct {
	conn *Connection
}

// RenameEntry moves From to To, relative to the request root.
type RenameEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChmodEntry sets Mode (octal, e.g. "0644") on File.
type ChmodEntry struct {
	File string `json:"file"`
	Mode string `json:"mode"`
}

// PullRequest asks the node to download a remote file into the server.
type PullRequest struct {
	URL        string `json:"url"`
	Root       string `json:"root"`
	FileName   string `json:"file_name,omitempty"`
	Foreground bool   `json:"foreground"`
	UseHeader  bool   `json:"use_header"`
}

// BackupRequest starts a backup with the given adapter.
type BackupRequest struct {
	Adapter string `json:"adapter"`
	UUID    string `json:"uuid"`
	Ignore  string `json:"ignore,omitempty"`
}

// RestoreRequest restores a backup.
type RestoreRequest struct {
	Adapter           string `json:"adapter"`
	TruncateDirectory bool   `json:"truncate_directory"`
	DownloadURL       string `json:"download_url,omitempty"`
}

func (s *ServerService) List(ctx context.Context) (*Envelope, error) {
	return s.conn.Get(ctx, "/api/servers")
}

func (s *ServerService) Get(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.get(ctx, serverUUID, nil)
}

// Create registers a server on the node. data is the panel's server
// definition and is sent as JSON.
func (s *ServerService) Create(ctx context.Context, data any) (*Envelope, error) {
	return s.conn.Post(ctx, "/api/servers", data)
}

func (s *ServerService) Delete(ctx context.Context, serverUUID string) (*Envelope, error) {
	p, err := serverPath(serverUUID)
	if err != nil {
		return nil, err
	}
	return s.conn.Delete(ctx, p)
}

// Power sends action and lets the node wait up to waitSeconds for it.
func (s *ServerService) Power(ctx context.Context, serverUUID string, action PowerAction, waitSeconds int) (*Envelope, error) {
	if waitSeconds <= 0 {
		waitSeconds = DefaultPowerWait
	}
	return s.post(ctx, serverUUID, "power", map[string]any{
		"action":       action,
		"wait_seconds": waitSeconds,
	})
}

func (s *ServerService) Start(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.Power(ctx, serverUUID, PowerStart, DefaultPowerWait)
}

func (s *ServerService) Stop(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.Power(ctx, serverUUID, PowerStop, DefaultPowerWait)
}

func (s *ServerService) Restart(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.Power(ctx, serverUUID, PowerRestart, DefaultPowerWait)
}

func (s *ServerService) Kill(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.Power(ctx, serverUUID, PowerKill, DefaultPowerWait)
}

// SendCommands writes commands to the server console.
func (s *ServerService) SendCommands(ctx context.Context, serverUUID string, commands ...string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "commands", map[string]any{"commands": commands})
}

// Logs returns the last lines of console output.
func (s *ServerService) Logs(ctx context.Context, serverUUID string, lines int) (*Envelope, error) {
	if lines <= 0 {
		lines = 100
	}
	return s.get(ctx, serverUUID, url.Values{"lines": {strconv.Itoa(lines)}}, "logs")
}

func (s *ServerService) Install(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "install", nil)
}

func (s *ServerService) Reinstall(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "reinstall", nil)
}

// Sync makes the node refetch the server configuration from the panel.
func (s *ServerService) Sync(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "sync", nil)
}

func (s *ServerService) InstallLogs(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.get(ctx, serverUUID, nil, "install-logs")
}

func (s *ServerService) ListDirectory(ctx context.Context, serverUUID, directory string) (*Envelope, error) {
	if directory == "" {
		directory = "/"
	}
	return s.get(ctx, serverUUID, url.Values{"directory": {directory}}, "files", "list-directory")
}

// FileContents returns the file body verbatim.
func (s *ServerService) FileContents(ctx context.Context, serverUUID, file string, download bool) (*Envelope, error) {
	p, err := serverPath(serverUUID, "files", "contents")
	if err != nil {
		return nil, err
	}
	q := url.Values{"file": {file}, "download": {strconv.FormatBool(download)}}
	return s.conn.GetRaw(ctx, withQuery(p, q))
}

// WriteFile replaces file with content, sent as text/plain.
func (s *ServerService) WriteFile(ctx context.Context, serverUUID, file string, content []byte) (*Envelope, error) {
	p, err := serverPath(serverUUID, "files", "write")
	if err != nil {
		return nil, err
	}
	return s.conn.PostRaw(ctx, withQuery(p, url.Values{"file": {file}}), content)
}

func (s *ServerService) RenameFiles(ctx context.Context, serverUUID, root string, files []RenameEntry) (*Envelope, error) {
	p, err := serverPath(serverUUID, "files", "rename")
	if err != nil {
		return nil, err
	}
	return s.conn.Put(ctx, p, map[string]any{"root": root, "files": files})
}

func (s *ServerService) CopyFiles(ctx context.Context, serverUUID, location string, files []string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/copy", map[string]any{"location": location, "files": files})
}

func (s *ServerService) DeleteFiles(ctx context.Context, serverUUID, root string, files []string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/delete", map[string]any{"root": root, "files": files})
}

func (s *ServerService) CreateDirectory(ctx context.Context, serverUUID, name, path string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/create-directory", map[string]any{"name": name, "path": path})
}

func (s *ServerService) Compress(ctx context.Context, serverUUID, root string, files []string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/compress", map[string]any{"root": root, "files": files})
}

func (s *ServerService) Decompress(ctx context.Context, serverUUID, root, file string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/decompress", map[string]any{"root": root, "file": file})
}

func (s *ServerService) Chmod(ctx context.Context, serverUUID, root string, files []ChmodEntry) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/chmod", map[string]any{"root": root, "files": files})
}

// Pulls lists remote downloads in progress.
func (s *ServerService) Pulls(ctx context.Context, serverUUID string) (*Envelope, error) {
	return s.get(ctx, serverUUID, nil, "files", "pull")
}

func (s *ServerService) Pull(ctx context.Context, serverUUID string, req PullRequest) (*Envelope, error) {
	return s.post(ctx, serverUUID, "files/pull", req)
}

func (s *ServerService) DeletePull(ctx context.Context, serverUUID, pullID string) (*Envelope, error) {
	p, err := serverPath(serverUUID, "files", "pull", url.PathEscape(pullID))
	if err != nil {
		return nil, err
	}
	return s.conn.Delete(ctx, p)
}

func (s *ServerService) CreateBackup(ctx context.Context, serverUUID string, req BackupRequest) (*Envelope, error) {
	if _, err := validUUID("backup", req.UUID); err != nil {
		return nil, err
	}
	return s.post(ctx, serverUUID, "backup", req)
}

func (s *ServerService) RestoreBackup(ctx context.Context, serverUUID, backupUUID string, req RestoreRequest) (*Envelope, error) {
	id, err := validUUID("backup", backupUUID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, serverUUID, "backup/"+id+"/restore", req)
}

func (s *ServerService) DeleteBackup(ctx context.Context, serverUUID, backupUUID string) (*Envelope, error) {
	id, err := validUUID("backup", backupUUID)
	if err != nil {
		return nil, err
	}
	p, err := serverPath(serverUUID, "backup", id)
	if err != nil {
		return nil, err
	}
	return s.conn.Delete(ctx, p)
}

// DenyWebsocketTokens adds token ids (jti) to the node's websocket deny
// list, closing sessions that use them.
func (s *ServerService) DenyWebsocketTokens(ctx context.Context, serverUUID string, jtis ...string) (*Envelope, error) {
	return s.post(ctx, serverUUID, "ws/deny", map[string]any{"jtis": jtis})
}

func (s *ServerService) get(ctx context.Context, serverUUID string, q url.Values, suffix ...string) (*Envelope, error) {
	p, err := serverPath(serverUUID, suffix...)
	if err != nil {
		return nil, err
	}
	return s.conn.Get(ctx, withQuery(p, q))
}

func (s *ServerService) post(ctx context.Context, serverUUID, suffix string, body any) (*Envelope, error) {
	p, err := serverPath(serverUUID, suffix)
	if err != nil {
		return nil, err
	}
	return s.conn.Post(ctx, p, body)
}
