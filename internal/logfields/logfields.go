package logfields

import (
	"log/slog"
	"time"
)

// 统一的日志字段名，避免各包各写一套
const (
	KeyWebsiteID   = "website_id"
	KeyWebsiteName = "website_name"
	KeyRunID       = "run_id"
	KeyStep        = "step"
	KeyStatus      = "status"
	KeyProtocol    = "protocol"
	KeyHost        = "host"
	KeyPath        = "path"
	KeyRemotePath  = "remote_path"
	KeyFiles       = "files"
	KeyCommand     = "command"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

func WebsiteID(id string) slog.Attr  { return slog.String(KeyWebsiteID, id) }
func WebsiteName(n string) slog.Attr { return slog.String(KeyWebsiteName, n) }
func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }
func Step(s string) slog.Attr        { return slog.String(KeyStep, s) }
func Status(s string) slog.Attr      { return slog.String(KeyStatus, s) }
func Protocol(p string) slog.Attr    { return slog.String(KeyProtocol, p) }
func Host(h string) slog.Attr        { return slog.String(KeyHost, h) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func RemotePath(p string) slog.Attr  { return slog.String(KeyRemotePath, p) }
func Files(n int) slog.Attr          { return slog.Int(KeyFiles, n) }
func Command(c string) slog.Attr     { return slog.String(KeyCommand, c) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Website 返回携带网站身份的子 logger，nil 时使用默认 logger
func Website(logger *slog.Logger, id, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(WebsiteID(id), WebsiteName(name))
}
