package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 课件上传允许的 MIME 类型
var AllowedCoursewareTypes = []string{"text/plain"}
