package sync

type ProcessBatchRequest struct {
	Operations []Operation `json:"operations" validate:"required,min=1,dive"`
}
