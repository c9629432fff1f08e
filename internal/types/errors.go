package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 候选人、岗位、申请不存在，或缓存未命中
	ErrNotFound = errors.New("记录不存在")
	// ErrAnalysisUnavailable 外部分析服务调用失败或返回无法解析，调用方可重试
	ErrAnalysisUnavailable = errors.New("分析服务不可用")
	// ErrMalformedAnalysisResult 分析结果缺少必要字段
	ErrMalformedAnalysisResult = errors.New("分析结果格式错误")
	// ErrInvalidArgument 请求参数错误
	ErrInvalidArgument = errors.New("参数错误")
)

// AnalysisError 分析调用失败的详细信息
type AnalysisError struct {
	Op      string
	BaseErr error
	Detail  string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s): %s", e.BaseErr, e.Op, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s)", e.BaseErr, e.Op)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is 支持 errors.Is 比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func NewUnavailableError(op, detail string) error {
	return &AnalysisError{Op: op, BaseErr: ErrAnalysisUnavailable, Detail: detail}
}

func NewMalformedError(op, detail string) error {
	return &AnalysisError{Op: op, BaseErr: ErrMalformedAnalysisResult, Detail: detail}
}

// IsRetryable 分析类错误允许调用方重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAnalysisUnavailable) || errors.Is(err, ErrMalformedAnalysisResult)
}

// CachePersistenceWarning 缓存写入失败，只记录日志，不返回给调用方
type CachePersistenceWarning struct {
	Tier        string
	Op          string
	CandidateID string
	JobID       string
	Err         error
}

func (w *CachePersistenceWarning) Error() string {
	return fmt.Sprintf("缓存写入失败 (层:%s, 操作:%s, 候选人:%s, 岗位:%s): %v", w.Tier, w.Op, w.CandidateID, w.JobID, w.Err)
}

func (w *CachePersistenceWarning) Unwrap() error {
	return w.Err
}
