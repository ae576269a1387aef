package util

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrContentNotFound     = errors.New("content not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrPermissionDenied    = errors.New("permission denied")

	ErrContentNotAccessible = errors.New("content not accessible")
	ErrActivityBlocked      = errors.New("mandatory activity must be answered before advancing")
	ErrActivityLocked       = errors.New("activity already submitted")
	ErrSubmissionInFlight   = errors.New("a submission is already in progress")
	ErrUnsupportedActivity  = errors.New("unsupported activity type")
	ErrEmptySequence        = errors.New("content has no playable activities")
	ErrConflictsUnresolved  = errors.New("level conflicts must be confirmed before saving")
	ErrNotRejected          = errors.New("progress can only be reset after rejection")
	ErrAlreadyApproved      = errors.New("progress already approved")
	ErrAutomaticCorrection  = errors.New("content uses automatic correction")
	ErrNotAssigned          = errors.New("user is not assigned to this content")

	// 分类哨兵，配合 errors.Is 使用
	ErrValidation    = errors.New("validation failed")
	ErrNetwork       = errors.New("collaborator unavailable")
	ErrPartialCommit = errors.New("partially committed")
)

// ValidationError 在调用任何外部存储之前拦截
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NetworkError 外部存储调用失败，状态不发生变化
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// WrapNetwork 未找到类错误原样返回，其余包装为 NetworkError
func WrapNetwork(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return err
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// PartialCommitError 多步写入中途失败，之前的步骤不会回滚
type PartialCommitError struct {
	Step     int
	StepName string
	Applied  []string
	Err      error
}

func (e *PartialCommitError) Error() string {
	msg := fmt.Sprintf("step %d (%s) failed: %v", e.Step, e.StepName, e.Err)
	if len(e.Applied) > 0 {
		msg += "; already applied: " + strings.Join(e.Applied, ", ")
	}
	return msg
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

func (e *PartialCommitError) Is(target error) bool { return target == ErrPartialCommit }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrCertificateNotFound)
}
