package protocol

// Control text exchanged in MESSAGE frames.
const (
	PromptUsername = "Username: "
	PromptPassword = "Password: "
	PromptCommand  = "Enter command (upload/download/delete/exit): "
	PromptDelete   = "Enter the filename to delete: "

	AuthSuccess = "Authentication successful."
	AuthFailure = "Authentication failed."

	InvalidCommand = "Invalid command."

	UploadReadyName    = "Ready to receive the filename."
	UploadReadyData    = "Ready to receive file data."
	UploadCancel       = "CANCEL_UPLOAD"
	UploadInvalidName  = "Invalid filename."
	UploadComplete     = "File upload completed successfully."
	UploadFailed       = "Error: Failed to receive file data."
	ChunkReceived      = "Chunk received."
	ChunkRejected      = "Chunk rejected."
	PreviewRequestPfx  = "PREVIEW "
	FileFound          = "FILE_FOUND"
	FileNotFound       = "FILE_NOT_FOUND"
	PreviewMode        = "PREVIEW_MODE"
	FileDeleted        = "FILE_DELETED"
	DeleteFailed       = "Error: Failed to delete file."
	ReasonUploadError  = "UPLOAD_ERROR"
	ReasonFileTooLarge = "FILE_TOO_LARGE"
	ReasonWriteFailed  = "WRITE_FAILED"
	ReasonReadFailed   = "READ_FAILED"
	ReasonUnexpected   = "UNEXPECTED_FRAME"
)

// Commands accepted at the command prompt.
const (
	CommandUpload   = "upload"
	CommandDownload = "download"
	CommandDelete   = "delete"
	CommandExit     = "exit"
)
