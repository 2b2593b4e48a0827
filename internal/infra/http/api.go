package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/report"
	"github.com/mcontrerasv/almacen/internal/service"
)

// API exposes the request, delivery and inventory services over JSON.
type API struct {
	Requests   *service.Requests
	Deliveries *service.Deliveries
	Inventory  *service.Inventory
	Log        *slog.Logger
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/requests", a.createRequest)
	mux.HandleFunc("GET /api/requests/{id}", a.getRequest)
	mux.HandleFunc("POST /api/requests/{id}/approve", a.approveRequest)
	mux.HandleFunc("POST /api/requests/{id}/reject", a.rejectRequest)
	mux.HandleFunc("POST /api/requests/{id}/purchasing", a.routeToPurchasing)
	mux.HandleFunc("POST /api/requests/{id}/cancel", a.cancelRequest)
	mux.HandleFunc("POST /api/requests/{id}/lines", a.addLine)
	mux.HandleFunc("DELETE /api/requests/{id}/lines/{lineID}", a.removeLine)
	mux.HandleFunc("GET /api/requests/{id}/pending", a.pendingLines)
	mux.HandleFunc("GET /api/requests/{id}/history", a.requestHistory)
	mux.HandleFunc("GET /api/requests/{id}/report", a.requestReport)

	mux.HandleFunc("POST /api/deliveries", a.createDelivery)
	mux.HandleFunc("GET /api/deliveries/{id}", a.getDelivery)

	mux.HandleFunc("POST /api/articles/{id}/receive", a.receiveStock)
	mux.HandleFunc("POST /api/articles/{id}/issue", a.issueStock)
	mux.HandleFunc("GET /api/articles/{id}/movements", a.articleMovements)
	mux.HandleFunc("GET /api/articles/below-minimum", a.belowMinimum)
}

type itemPayload struct {
	Kind      requests.Kind `json:"kind"`
	ArticleID int64         `json:"article_id"`
	AssetID   int64         `json:"asset_id"`
}

func (p itemPayload) ref() requests.ItemRef {
	return requests.ItemRef{Kind: p.Kind, ArticleID: p.ArticleID, AssetID: p.AssetID}
}

type linePayload struct {
	Item     itemPayload `json:"item"`
	Quantity int64       `json:"quantity"`
	Notes    string      `json:"notes"`
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind         requests.Kind `json:"kind"`
		RequestorID  int64         `json:"requestor_id"`
		RequiredBy   time.Time     `json:"required_by"`
		WarehouseID  *int64        `json:"warehouse_id"`
		DepartmentID *int64        `json:"department_id"`
		Reason       string        `json:"reason"`
		Notes        string        `json:"notes"`
		Lines        []linePayload `json:"lines"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	in := service.CreateRequest{
		Kind:         body.Kind,
		RequestorID:  body.RequestorID,
		RequiredBy:   body.RequiredBy,
		WarehouseID:  body.WarehouseID,
		DepartmentID: body.DepartmentID,
		Reason:       body.Reason,
		Notes:        body.Notes,
	}
	for _, l := range body.Lines {
		in.Lines = append(in.Lines, service.NewLine{Item: l.Item.ref(), Quantity: l.Quantity, Notes: l.Notes})
	}

	req, err := a.Requests.Create(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusCreated, req)
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, lines, err := a.Requests.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, map[string]any{"request": req, "lines": lines})
}

func (a *API) approveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Approvals map[int64]int64 `json:"approvals"`
		ActorID   int64           `json:"actor_id"`
		Notes     string          `json:"notes"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.Requests.Approve(r.Context(), id, body.Approvals, body.ActorID, body.Notes); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) rejectRequest(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Requests.Reject)
}

func (a *API) routeToPurchasing(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Requests.RouteToPurchasing)
}

func (a *API) cancelRequest(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Requests.Cancel)
}

// transition handles the three body-compatible state changes: reject,
// route-to-purchasing and cancel.
func (a *API) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64, reason string) error) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		ActorID int64  `json:"actor_id"`
		Reason  string `json:"reason"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := fn(r.Context(), id, body.ActorID, body.Reason); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		linePayload
		ActorID int64 `json:"actor_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	line, err := a.Requests.AddLine(r.Context(), id,
		service.NewLine{Item: body.Item.ref(), Quantity: body.Quantity, Notes: body.Notes}, body.ActorID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusCreated, line)
}

func (a *API) removeLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	actorID, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	if err := a.Requests.RemoveLine(r.Context(), id, lineID, actorID); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) pendingLines(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lines, err := a.Requests.PendingLines(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, lines)
}

func (a *API) requestHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	hist, err := a.Requests.History(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, hist)
}

func (a *API) requestReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, lines, err := a.Requests.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	hist, err := a.Requests.History(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	buf, err := report.RequestWorkbook(req, lines, hist)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.Number+`.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) createDelivery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind         requests.Kind `json:"kind"`
		WarehouseID  *int64        `json:"warehouse_id"`
		DepartmentID *int64        `json:"department_id"`
		DeliveredBy  int64         `json:"delivered_by"`
		ReceivedBy   int64         `json:"received_by"`
		RequestID    *int64        `json:"request_id"`
		Reason       string        `json:"reason"`
		Notes        string        `json:"notes"`
		Lines        []struct {
			linePayload
			RequestLineID *int64 `json:"request_line_id"`
			Lot           string `json:"lot"`
			SerialNumber  string `json:"serial_number"`
		} `json:"lines"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	in := service.CreateDelivery{
		Kind:         body.Kind,
		WarehouseID:  body.WarehouseID,
		DepartmentID: body.DepartmentID,
		DeliveredBy:  body.DeliveredBy,
		ReceivedBy:   body.ReceivedBy,
		RequestID:    body.RequestID,
		Reason:       body.Reason,
		Notes:        body.Notes,
	}
	for _, l := range body.Lines {
		in.Lines = append(in.Lines, service.DeliveryLine{
			Item:          l.Item.ref(),
			Quantity:      l.Quantity,
			RequestLineID: l.RequestLineID,
			Lot:           l.Lot,
			SerialNumber:  l.SerialNumber,
			Notes:         l.Notes,
		})
	}

	dlv, err := a.Deliveries.Create(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusCreated, dlv)
}

func (a *API) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dlv, lines, err := a.Deliveries.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, map[string]any{"delivery": dlv, "lines": lines})
}

func (a *API) receiveStock(w http.ResponseWriter, r *http.Request) {
	a.stockMove(w, r, a.Inventory.Receive)
}

// stockMove handles the two body-compatible direct stock operations:
// receive and issue.
func (a *API) stockMove(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, articleID, qty, actorID int64, reason string) (*inventory.Movement, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Quantity int64  `json:"quantity"`
		ActorID  int64  `json:"actor_id"`
		Reason   string `json:"reason"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	mov, err := fn(r.Context(), id, body.Quantity, body.ActorID, body.Reason)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusCreated, mov)
}

func (a *API) issueStock(w http.ResponseWriter, r *http.Request) {
	a.stockMove(w, r, a.Inventory.Issue)
}

func (a *API) articleMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movs, err := a.Inventory.History(r.Context(), id, limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, movs)
}

func (a *API) belowMinimum(w http.ResponseWriter, r *http.Request) {
	arts, err := a.Inventory.BelowMinimum(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.reply(w, http.StatusOK, arts)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Log.Error("encode response", "err", err)
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case requests.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, requests.ErrAlreadyFinal),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrMaxStockExceeded):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, requests.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		a.Log.Error("internal error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
