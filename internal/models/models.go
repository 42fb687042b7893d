package models

type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangGolang     Language = "golang"
	LangCPP        Language = "c_cpp"
)

// DefaultLanguage is the mode every fresh room starts in.
const DefaultLanguage = LangJavaScript

func SupportedLanguages() []Language {
	return []Language{LangJavaScript, LangJava, LangCPP, LangPython, LangTypeScript, LangGolang}
}

func (l Language) Valid() bool {
	switch l {
	case LangJavaScript, LangTypeScript, LangPython, LangJava, LangGolang, LangCPP:
		return true
	}
	return false
}

/*** WebSocket protocol ***/

// WSFrame is the envelope for every message on the room channel.
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event names, client to server.
const (
	EventJoinRoom       = "join room"
	EventLeaveRoom      = "leave room"
	EventUpdateCode     = "update code"
	EventUpdateLanguage = "update language"
	EventTypingStart    = "typing-start"
	EventTypingStop     = "typing-stop"
)

// Event names, server to client.
const (
	EventCodeChange      = "on code change"
	EventLanguageChange  = "on language change"
	EventClientList      = "updating client list"
	EventUserTypingStart = "user-typing-start"
	EventUserTypingStop  = "user-typing-stop"
	EventError           = "error"
)

type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

type CodeUpdate struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type CodeChange struct {
	Code string `json:"code"`
}

type LanguageUpdate struct {
	RoomID       string   `json:"roomId"`
	LanguageUsed Language `json:"languageUsed"`
}

type LanguageChange struct {
	LanguageUsed Language `json:"languageUsed"`
}

type ClientList struct {
	UsersList []string `json:"userslist"`
}

type TypingSignal struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type TypingEvent struct {
	Username string `json:"username"`
}

/*** Execution relay ***/

type RunRequest struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
}

// RunResult carries at most one populated output field; consumers surface
// stdout, then stderr, then compile_output.
type RunResult struct {
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	CompileOutput string `json:"compile_output,omitempty"`
}

/*** AI assistance relay ***/

type AIRequest struct {
	Code   string `json:"code"`
	Prompt string `json:"prompt"`
}

type AIResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

/*** Session lifecycle ***/

// SessionEndedEvent is published when the last participant leaves a room.
type SessionEndedEvent struct {
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
	Language     Language `json:"language"`
	FinalCode    string   `json:"finalCode"`
	StartedAt    string   `json:"startedAt"`
	EndedAt      string   `json:"endedAt"`
	DurationSec  int      `json:"durationSeconds"`
}
