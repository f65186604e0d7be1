package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/service"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// upload accepts a multipart salary file. Validation is synchronous; the
// remaining stages run in the background unless sync=true.
func (s *Server) upload(c *gin.Context) {
	if s.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	ctx := c.Request.Context()
	if c.Query("sync") == "true" {
		ack, err := s.pipeline.Process(ctx, raw, header.Filename)
		s.respondAck(c, ack, err)
		return
	}

	batch, ack, err := s.pipeline.Receive(ctx, raw, header.Filename)
	if err != nil {
		s.respondAck(c, ack, err)
		return
	}
	if batch == nil {
		c.JSON(http.StatusUnprocessableEntity, ack)
		return
	}

	s.runAsync(batch, header.Filename)
	c.JSON(http.StatusAccepted, ack)
}

func (s *Server) processBatch(c *gin.Context) {
	var batch model.SalaryBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	ack, err := s.pipeline.ProcessBatch(c.Request.Context(), &batch, "api")
	s.respondAck(c, ack, err)
}

func (s *Server) approve(c *gin.Context) {
	ack, err := s.pipeline.Approve(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) listAcknowledgements(c *gin.Context) {
	filter := service.AckFilter{}
	if status := c.Query("status"); status != "" {
		parsed, err := model.ParseAckStatus(status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = parsed
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	acks, err := s.store.ListAcknowledgements(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if acks == nil {
		acks = []model.Acknowledgement{}
	}
	c.JSON(http.StatusOK, acks)
}

func (s *Server) getAcknowledgement(c *gin.Context) {
	ack, err := s.store.FindByBatchID(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) getHistory(c *gin.Context) {
	history, err := s.store.History(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(history) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) status(c *gin.Context) {
	outcome, ack, err := s.pipeline.CheckStatus(c.Request.Context(), c.Param("batchId"), c.Query("record") == "true")
	if err != nil {
		s.respondError(c, err)
		return
	}
	body := gin.H{"outcome": outcome}
	if ack != nil {
		body["acknowledgement"] = ack
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) saveEmployee(c *gin.Context) {
	var employee model.Employee
	if err := c.ShouldBindJSON(&employee); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if err := s.store.SaveEmployee(c.Request.Context(), &employee); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (s *Server) listEmployees(c *gin.Context) {
	employees, err := s.store.ListEmployees(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	c.JSON(http.StatusOK, employees)
}

func (s *Server) getEmployee(c *gin.Context) {
	employee, err := s.store.GetEmployee(c.Request.Context(), c.Param("employeeId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

// respondAck maps a recorded outcome onto a response. Validation failures are
// 422, an already admitted batch is 409 with its current acknowledgement, and
// every other recorded outcome is 200 with the acknowledgement body.
func (s *Server) respondAck(c *gin.Context, ack *model.Acknowledgement, err error) {
	if err != nil && ack == nil {
		s.respondError(c, err)
		return
	}
	if errors.Is(err, common.ErrAlreadyAdmitted) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "acknowledgement": ack})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "acknowledgement": ack})
		return
	}
	if ack.Status == model.StatusValidationFailed {
		c.JSON(http.StatusUnprocessableEntity, ack)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
