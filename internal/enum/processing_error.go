package enum

type ProcessingErrorKind string

const (
	ProcessingErrorRoutingNoMatch   ProcessingErrorKind = "routing_no_match"
	ProcessingErrorRoutingAmbiguous ProcessingErrorKind = "routing_ambiguous"
	ProcessingErrorUnsupportedCTE   ProcessingErrorKind = "unsupported_encoding"
	ProcessingErrorMessageDecode    ProcessingErrorKind = "message_decode"
)

func (t ProcessingErrorKind) String() string {
	return string(t)
}

type FolderRunStatus string

const (
	FolderRunStarted FolderRunStatus = "started"
	FolderRunSuccess FolderRunStatus = "success"
	FolderRunInfo    FolderRunStatus = "info"
	FolderRunError   FolderRunStatus = "error"
)

func (t FolderRunStatus) String() string {
	return string(t)
}
