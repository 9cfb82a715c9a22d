package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// HandlePublishPostTask runs when a scheduled post comes due. Dispatch goes
// through the same path as an immediate publish, so per-platform results and
// the aggregate status are recorded identically.
func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := j.ps.Dispatch(ctx, payload.PostID); err != nil {
		log.Printf("Error publishing PostID %d: %v", payload.PostID, err)
	}

	return nil
}
