package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/document"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/session"
)

type attachPathRequest struct {
	Path    string `json:"path" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// editRequest mirrors entity.Patch with payload rules.
type editRequest struct {
	BillingDate *string `json:"billingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Company     *string `json:"company,omitempty" validate:"omitempty,max=300"`
	Creditor    *string `json:"creditor,omitempty" validate:"omitempty,max=300"`
	Concept     *string `json:"concept,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	BaseAmount  *int64  `json:"baseAmount,omitempty" validate:"omitempty,gte=0"`
	HasTax      *bool   `json:"hasTax,omitempty"`
	TaxAmount   *int64  `json:"taxAmount,omitempty" validate:"omitempty,gte=0"`
	TotalAmount *int64  `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
}

type discrepancyResponse struct {
	Consistent    bool                 `json:"consistent"`
	Discrepancies []entity.Discrepancy `json:"discrepancies"`
	Messages      []string             `json:"messages"`
}

type submitRefusal struct {
	ErrorResponse
	Discrepancies []entity.Discrepancy `json:"discrepancies"`
}

func (s *Server) session(c echo.Context) (*session.Session, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, "session id must be a UUID", common.ErrInvalidInput)
	}
	return s.registry.Get(id)
}

func (s *Server) createSession(c echo.Context) error {
	sess, err := s.registry.Create(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	s.registry.Delete(sess.ID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) editSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	req, err := bindRequest[editRequest](c)
	if err != nil {
		return err
	}
	sess.Edit(entity.Patch(req))
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// attachDocument accepts either a multipart upload in "file" or a JSON body
// naming a path under the document root. Nothing is sent for extraction
// unless confirm is true.
func (s *Server) attachDocument(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var doc document.Document
	var confirm bool
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		doc, confirm, err = s.uploadedDocument(c)
	} else {
		doc, confirm, err = s.pathDocument(c)
	}
	if err != nil {
		return err
	}

	res, err := sess.Attach(c.Request().Context(), doc, confirm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) uploadedDocument(c echo.Context) (document.Document, bool, error) {
	confirm, _ := strconv.ParseBool(c.FormValue("confirm"))

	fh, err := c.FormFile("file")
	if err != nil {
		return document.Document{}, false, common.NewAppError(common.CodeInvalidInput, "file is required", common.ErrInvalidInput)
	}
	f, err := fh.Open()
	if err != nil {
		return document.Document{}, false, common.NewAppError(common.CodeInvalidInput, "unable to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(s.maxMB)<<20+1))
	if err != nil {
		return document.Document{}, false, common.NewAppError(common.CodeInvalidInput, "unable to read upload", err)
	}
	doc, err := document.FromBytes(fh.Filename, data, s.maxMB)
	return doc, confirm, err
}

func (s *Server) pathDocument(c echo.Context) (document.Document, bool, error) {
	req, err := bindRequest[attachPathRequest](c)
	if err != nil {
		return document.Document{}, false, err
	}
	if s.docRoot == "" {
		return document.Document{}, false, common.NewAppError(common.CodeInvalidInput, "attaching by path is disabled", common.ErrInvalidInput)
	}
	full := filepath.Join(s.docRoot, filepath.Clean(string(filepath.Separator)+req.Path))
	doc, err := document.Load(full, s.maxMB)
	return doc, req.Confirm, err
}

func (s *Server) discrepancies(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	ds := sess.Discrepancies()
	if ds == nil {
		ds = []entity.Discrepancy{}
	}
	return c.JSON(http.StatusOK, discrepancyResponse{
		Consistent:    len(ds) == 0,
		Discrepancies: ds,
		Messages:      entity.Messages(ds),
	})
}

func (s *Server) submit(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	order, ds, err := sess.Submit(ctx)
	if len(ds) > 0 {
		return c.JSON(http.StatusConflict, submitRefusal{
			ErrorResponse: ErrorResponse{
				Code:      common.ErrorCode(err),
				Message:   "the form does not match the attached document",
				RequestID: common.RequestIDFromContext(ctx),
			},
			Discrepancies: ds,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, order)
}
