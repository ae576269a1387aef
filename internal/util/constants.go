package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

const (
	MB = 1 << 20

	// 上传类活动未设置大小上限时的默认值（MB）
	DefaultUploadMaxMB = 10
)
