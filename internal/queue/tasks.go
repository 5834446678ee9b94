package queue

import (
	"encoding/json"
	"time"

	"github.com/postback-hub/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskConversionEnrich 新转化的后置处理（来源回填、分析通知）
	TaskConversionEnrich = constants.TaskConversionEnrich
	// TaskConversionDuplicateObserved 重复投递观测记录
	TaskConversionDuplicateObserved = constants.TaskConversionDuplicateObserv
)

// ConversionEnrichPayload 后置处理任务载荷
type ConversionEnrichPayload struct {
	PartnerID    uint   `json:"partner_id"`
	PartnerCode  string `json:"partner_code"`
	ConversionID string `json:"conversion_id"`
	SourceName   string `json:"source_name,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// DuplicateObservedPayload 重复投递任务载荷
// ObservationID 标识一次重复投递，任务重试时据此只计数一次。
type DuplicateObservedPayload struct {
	PartnerID     uint      `json:"partner_id"`
	PartnerCode   string    `json:"partner_code"`
	ConversionID  string    `json:"conversion_id"`
	ObservationID string    `json:"observation_id,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
	RequestID     string    `json:"request_id,omitempty"`
}

// NewConversionEnrichTask 创建后置处理任务
func NewConversionEnrichTask(payload ConversionEnrichPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionEnrich, body), nil
}

// NewDuplicateObservedTask 创建重复投递观测任务
func NewDuplicateObservedTask(payload DuplicateObservedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionDuplicateObserved, body), nil
}
