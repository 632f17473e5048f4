// Package generation 驱动网站生成的状态机：构建 → 上传（或清理），
// 每个阶段开始与结束都会发出 Event，失败时精确标注出错的阶段。
package generation

import (
	"fmt"
	"time"
)

// Status 生成任务的整体状态
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFail       Status = "FAIL"
)

// Step 当前所处的阶段，任务结束成功后回到 IDLE
type Step string

const (
	StepIdle   Step = "IDLE"
	StepBuild  Step = "BUILD"
	StepUpload Step = "UPLOAD"
	StepClean  Step = "CLEAN"
)

// Event 进度事件，JSON 格式供订阅方消费
type Event struct {
	WebsiteID string     `json:"id"`
	RunID     string     `json:"runId"`
	Status    Status     `json:"status"`
	Step      Step       `json:"step"`
	Reason    string     `json:"reason"`
	StartTime time.Time  `json:"startDate"`
	EndTime   *time.Time `json:"endDate,omitempty"`
}

// Terminal 事件是否表示任务已结束
func (e Event) Terminal() bool {
	return e.Status == StatusSuccess || e.Status == StatusFail
}

func (e Event) String() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s/%s: %s", e.WebsiteID, e.Status, e.Step, e.Reason)
	}
	return fmt.Sprintf("%s %s/%s", e.WebsiteID, e.Status, e.Step)
}

// StepError 标注失败阶段的错误，Unwrap 返回阶段内的原始错误
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
