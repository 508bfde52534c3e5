package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General    Category = "General"
	Internal   Category = "Internal"
	Remote     Category = "Remote"
	Live       Category = "Live"
	Sync       Category = "Sync"
	Validation Category = "Validation"
	Prometheus Category = "Prometheus"
)

const (
	// General
	Startup     SubCategory = "Startup"
	Shutdown    SubCategory = "Shutdown"
	DebugServer SubCategory = "DebugServer"

	// Remote
	Request      SubCategory = "Request"
	RateLimiting SubCategory = "RateLimiting"

	// Sync
	Session   SubCategory = "Session"
	Directory SubCategory = "Directory"
	Detail    SubCategory = "Detail"
	Votes     SubCategory = "Votes"
	Answers   SubCategory = "Answers"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestID    ExtraKey = "RequestId"
	RoomID       ExtraKey = "RoomId"
	AnswerID     ExtraKey = "AnswerId"
	UserID       ExtraKey = "UserId"
	Username     ExtraKey = "Username"
	Query        ExtraKey = "Query"
	Count        ExtraKey = "Count"
	Seq          ExtraKey = "Seq"
	ErrorMessage ExtraKey = "ErrorMessage"
)
