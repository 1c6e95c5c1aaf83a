package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http/response"
)

type RewardHandler interface {
	PostBonus(w http.ResponseWriter, r *http.Request)
}

type rewardHandlerImpl struct {
	rewardService reward.RewardService
}

func NewRewardHandler(rewardService reward.RewardService) RewardHandler {
	return &rewardHandlerImpl{rewardService: rewardService}
}

func (h *rewardHandlerImpl) PostBonus(w http.ResponseWriter, r *http.Request) {
	var req reward.PostBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.rewardService.PostBonus(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Created(w, "Bonus recorded", result)
}
