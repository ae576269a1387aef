package util

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffContentType 客户端未给出类型时按前 512 字节判断，返回的 reader 仍包含完整内容
func SniffContentType(reader io.Reader, declared string) (string, io.Reader, error) {
	if declared != "" && declared != MimeOctetStream {
		return declared, reader, nil
	}
	buffer := make([]byte, 512)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	buffer = buffer[:n]
	return http.DetectContentType(buffer), io.MultiReader(bytes.NewReader(buffer), reader), nil
}

// FileExtension 小写且不带点的扩展名
func FileExtension(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// ExtensionAllowed accepted 为空表示不限制，条目可带或不带点
func ExtensionAllowed(name string, accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	ext := FileExtension(name)
	if ext == "" {
		return false
	}
	for _, a := range accepted {
		if strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a)), ".") == ext {
			return true
		}
	}
	return false
}
