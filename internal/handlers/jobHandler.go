package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/job"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

var errServiceUnavailable = errors.New("job service is not initialised")

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}
		logJH.Info("Starting job handler")
	})
}

// CreateNewJob queues j, starting a fresh chat history first when asked to.
func CreateNewJob(ctx context.Context, j jobModel.Job, isNewChat bool) error {
	if handlerInstance == nil {
		return errServiceUnavailable
	}
	log := logJH.Ctx(ctx).With("jobId", j.Id)
	if isNewChat {
		log.Debug("Create new chat", "chatId", j.ChatId)
		if err := handlerInstance.service.MessageStore.InitNewChat(ctx, j.UserId, j.ChatId); err != nil {
			log.Error("Error initiating new chat", "chatId", j.ChatId, "error", err)
			return err
		}
	}
	return handlerInstance.service.Enqueue(ctx, j)
}

func GetJobStatus(ctx context.Context, userId string, id string) (jobModel.Job, bool) {
	if handlerInstance == nil {
		return jobModel.Job{}, false
	}
	j, err := handlerInstance.service.GetJob(ctx, userId, id)
	return j, err == nil
}

// ValidateChatRequest accepts an empty chat id (new chat) or one owned by userId.
func ValidateChatRequest(ctx context.Context, userId string, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	logJH.Ctx(ctx).Debug("Validating chat id", "chatId", chatReq.ChatID)
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, userId, chatReq.ChatID)
}
