// response.go — JSON-представления ресурсов реестра.
package handlers

import (
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/retention"
)

// pageResponse — страница списка.
type pageResponse[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasMore bool `json:"has_more"`
}

// toPage конвертирует PageResult, применяя conv к каждому элементу.
func toPage[S, T any](p model.PageResult[S], conv func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[T]{
		Items:   items,
		Total:   p.Total,
		Page:    p.Page,
		PerPage: p.PerPage,
		HasMore: p.HasMore(),
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// --- kode_klasifikasi ---

type codeResponse struct {
	ID                     int64     `json:"id"`
	Code                   string    `json:"code"`
	ParentCode             *string   `json:"parent_code"`
	Description            string    `json:"description"`
	ActiveRetentionYears   int       `json:"active_retention_years"`
	InactiveRetentionYears int       `json:"inactive_retention_years"`
	FinalDisposition       string    `json:"final_disposition"`
	SecurityClassification string    `json:"security_classification"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toCodeResponse(c *model.ClassificationCode) codeResponse {
	return codeResponse{
		ID:                     c.ID,
		Code:                   c.Code,
		ParentCode:             c.ParentCode,
		Description:            c.Description,
		ActiveRetentionYears:   c.ActiveRetentionYears,
		InactiveRetentionYears: c.InactiveRetentionYears,
		FinalDisposition:       string(c.FinalDisposition),
		SecurityClassification: string(c.SecurityClassification),
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

type codeNodeResponse struct {
	codeResponse
	Children []codeNodeResponse `json:"children"`
}

func toCodeNodes(nodes []*model.ClassificationNode) []codeNodeResponse {
	out := make([]codeNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, codeNodeResponse{
			codeResponse: toCodeResponse(&n.Code),
			Children:     toCodeNodes(n.Children),
		})
	}
	return out
}

// --- справочники ---

type unitResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      *string   `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUnitResponse(u *model.ProcessingUnit) unitResponse {
	return unitResponse{ID: u.ID, Name: u.Name, Code: u.Code, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

type categoryResponse struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description"`
	SubCategoryCount int       `json:"sub_category_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		SubCategoryCount: c.SubCategoryCount,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

type subCategoryResponse struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSubCategoryResponse(s *model.SubCategory) subCategoryResponse {
	return subCategoryResponse{
		ID:          s.ID,
		CategoryID:  s.CategoryID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// --- berkas_arsip ---

type archiveFileResponse struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	ClassificationCode     string    `json:"classification_code"`
	ProcessingUnitID       *int64    `json:"processing_unit_id"`
	ActiveRetentionYears   *int      `json:"active_retention_years"`
	InactiveRetentionYears *int      `json:"inactive_retention_years"`
	PhysicalLocation       string    `json:"physical_location"`
	Description            string    `json:"description"`
	CreatedBy              *int64    `json:"created_by"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toArchiveFileResponse(f *model.ArchiveFile) archiveFileResponse {
	return archiveFileResponse{
		ID:                     f.ID,
		Name:                   f.Name,
		ClassificationCode:     f.ClassificationCode,
		ProcessingUnitID:       f.ProcessingUnitID,
		ActiveRetentionYears:   f.ActiveRetentionYears,
		InactiveRetentionYears: f.InactiveRetentionYears,
		PhysicalLocation:       f.PhysicalLocation,
		Description:            f.Description,
		CreatedBy:              f.CreatedBy,
		CreatedAt:              f.CreatedAt,
		UpdatedAt:              f.UpdatedAt,
	}
}

type policyResponse struct {
	ClassificationCode     string  `json:"classification_code"`
	ActiveYears            int     `json:"active_years"`
	InactiveYears          int     `json:"inactive_years"`
	ActiveSource           string  `json:"active_source"`
	InactiveSource         string  `json:"inactive_source"`
	ActiveFromCode         *string `json:"active_from_code,omitempty"`
	InactiveFromCode       *string `json:"inactive_from_code,omitempty"`
	FinalDisposition       string  `json:"final_disposition"`
	SecurityClassification string  `json:"security_classification"`
}

func toPolicyResponse(p *retention.Policy) policyResponse {
	return policyResponse{
		ClassificationCode:     p.ClassificationCode,
		ActiveYears:            p.ActiveYears,
		InactiveYears:          p.InactiveYears,
		ActiveSource:           p.ActiveSource,
		InactiveSource:         p.InactiveSource,
		ActiveFromCode:         p.ActiveFromCode,
		InactiveFromCode:       p.InactiveFromCode,
		FinalDisposition:       string(p.FinalDisposition),
		SecurityClassification: string(p.SecurityClassification),
	}
}

type scheduleResponse struct {
	Policy        policyResponse `json:"policy"`
	ActiveUntil   *string        `json:"active_until"`
	InactiveUntil *string        `json:"inactive_until"`
}

// --- arsip_unit ---

type locationDTO struct {
	Room    string `json:"room" validate:"max=100"`
	Cabinet string `json:"cabinet" validate:"max=100"`
	Drawer  string `json:"drawer" validate:"max=100"`
	Folder  string `json:"folder" validate:"max=100"`
	Box     string `json:"box" validate:"max=100"`
}

type archiveUnitResponse struct {
	ID                 int64       `json:"id"`
	ClassificationCode *string     `json:"classification_code"`
	ProcessingUnitID   *int64      `json:"processing_unit_id"`
	ArchiveFileID      *int64      `json:"archive_file_id"`
	CategoryID         *int64      `json:"category_id"`
	SubCategoryID      *int64      `json:"sub_category_id"`
	IndexTerms         string      `json:"index_terms"`
	Description        string      `json:"description"`
	ItemDate           *string     `json:"item_date"`
	Amount             int         `json:"amount"`
	AmountUnit         string      `json:"amount_unit"`
	Location           locationDTO `json:"location"`
	Remarks            string      `json:"remarks"`
	Status             string      `json:"status"`
	PublishStatus      string      `json:"publish_status"`
	VerifiedBy         *int64      `json:"verified_by"`
	VerifiedAt         *time.Time  `json:"verified_at"`
	VerificationNotes  *string     `json:"verification_notes"`
	SubmittedAt        time.Time   `json:"submitted_at"`
	CreatedBy          *int64      `json:"created_by"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func toArchiveUnitResponse(u *model.ArchiveUnit) archiveUnitResponse {
	return archiveUnitResponse{
		ID:                 u.ID,
		ClassificationCode: u.ClassificationCode,
		ProcessingUnitID:   u.ProcessingUnitID,
		ArchiveFileID:      u.ArchiveFileID,
		CategoryID:         u.CategoryID,
		SubCategoryID:      u.SubCategoryID,
		IndexTerms:         u.IndexTerms,
		Description:        u.Description,
		ItemDate:           formatDate(u.ItemDate),
		Amount:             u.Amount,
		AmountUnit:         u.AmountUnit,
		Location:           locationDTO(u.Location),
		Remarks:            u.Remarks,
		Status:             string(u.Status),
		PublishStatus:      string(u.PublishStatus),
		VerifiedBy:         u.VerifiedBy,
		VerifiedAt:         u.VerifiedAt,
		VerificationNotes:  u.VerificationNotes,
		SubmittedAt:        u.SubmittedAt,
		CreatedBy:          u.CreatedBy,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

type archiveUnitDetailResponse struct {
	archiveUnitResponse
	ClassificationDescription *string `json:"classification_description"`
	ProcessingUnitName        *string `json:"processing_unit_name"`
	ArchiveFileName           *string `json:"archive_file_name"`
	CategoryName              *string `json:"category_name"`
	SubCategoryName           *string `json:"sub_category_name"`
	VerifierName              *string `json:"verifier_name"`
}

func toArchiveUnitDetailResponse(d *model.ArchiveUnitDetail) archiveUnitDetailResponse {
	return archiveUnitDetailResponse{
		archiveUnitResponse:       toArchiveUnitResponse(&d.ArchiveUnit),
		ClassificationDescription: d.ClassificationDescription,
		ProcessingUnitName:        d.ProcessingUnitName,
		ArchiveFileName:           d.ArchiveFileName,
		CategoryName:              d.CategoryName,
		SubCategoryName:           d.SubCategoryName,
		VerifierName:              d.VerifierName,
	}
}

// --- berita_acara ---

type handoverResponse struct {
	ID                int64     `json:"id"`
	Number            string    `json:"number"`
	Date              string    `json:"date"`
	OriginUnitID      int64     `json:"origin_unit_id"`
	DestinationUnitID *int64    `json:"destination_unit_id"`
	RecipientName     *string   `json:"recipient_name"`
	RecipientTitle    *string   `json:"recipient_title"`
	Notes             string    `json:"notes"`
	CreatedBy         int64     `json:"created_by"`
	ItemCount         int       `json:"item_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toHandoverResponse(h *model.HandoverRecord) handoverResponse {
	return handoverResponse{
		ID:                h.ID,
		Number:            h.Number,
		Date:              h.Date.Format(dateLayout),
		OriginUnitID:      h.OriginUnitID,
		DestinationUnitID: h.DestinationUnitID,
		RecipientName:     h.RecipientName,
		RecipientTitle:    h.RecipientTitle,
		Notes:             h.Notes,
		CreatedBy:         h.CreatedBy,
		ItemCount:         h.ItemCount,
		CreatedAt:         h.CreatedAt,
		UpdatedAt:         h.UpdatedAt,
	}
}

type handoverItemResponse struct {
	ArchiveUnitID      int64   `json:"archive_unit_id"`
	Remarks            string  `json:"remarks"`
	ClassificationCode *string `json:"classification_code"`
	IndexTerms         string  `json:"index_terms"`
	Description        string  `json:"description"`
	Amount             int     `json:"amount"`
	AmountUnit         string  `json:"amount_unit"`
	Status             string  `json:"status"`
}

type handoverDetailResponse struct {
	handoverResponse
	OriginUnitName      string                 `json:"origin_unit_name"`
	DestinationUnitName *string                `json:"destination_unit_name"`
	CreatorName         string                 `json:"creator_name"`
	Items               []handoverItemResponse `json:"items"`
}

func toHandoverDetailResponse(d *model.HandoverDetail) handoverDetailResponse {
	items := make([]handoverItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, handoverItemResponse{
			ArchiveUnitID:      it.ArchiveUnitID,
			Remarks:            it.Remarks,
			ClassificationCode: it.Unit.ClassificationCode,
			IndexTerms:         it.Unit.IndexTerms,
			Description:        it.Unit.Description,
			Amount:             it.Unit.Amount,
			AmountUnit:         it.Unit.AmountUnit,
			Status:             string(it.Unit.Status),
		})
	}
	return handoverDetailResponse{
		handoverResponse:    toHandoverResponse(&d.HandoverRecord),
		OriginUnitName:      d.OriginUnitName,
		DestinationUnitName: d.DestinationUnitName,
		CreatorName:         d.CreatorName,
		Items:               items,
	}
}

// --- users ---

type userResponse struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	ProcessingUnitID *int64    `json:"processing_unit_id"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Username:         u.Username,
		FullName:         u.FullName,
		Email:            u.Email,
		Role:             u.Role,
		ProcessingUnitID: u.ProcessingUnitID,
		Active:           u.Active,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

type meResponse struct {
	UserID           int64    `json:"user_id"`
	Username         string   `json:"username"`
	Role             string   `json:"role"`
	ProcessingUnitID *int64   `json:"processing_unit_id"`
	Email            string   `json:"email,omitempty"`
	Groups           []string `json:"groups"`
}

// --- dashboard ---

type statisticsResponse struct {
	ArchiveUnits        int            `json:"archive_units"`
	ByStatus            map[string]int `json:"by_status"`
	ByPublishStatus     map[string]int `json:"by_publish_status"`
	ArchiveFiles        int            `json:"archive_files"`
	Handovers           int            `json:"handovers"`
	ClassificationCodes int            `json:"classification_codes"`
	ProcessingUnits     int            `json:"processing_units"`
}

func toStatisticsResponse(s *model.Statistics) statisticsResponse {
	resp := statisticsResponse{
		ArchiveUnits:        s.ArchiveUnits,
		ByStatus:            make(map[string]int, len(s.ByStatus)),
		ByPublishStatus:     make(map[string]int, len(s.ByPublishStatus)),
		ArchiveFiles:        s.ArchiveFiles,
		Handovers:           s.Handovers,
		ClassificationCodes: s.ClassificationCodes,
		ProcessingUnits:     s.ProcessingUnits,
	}
	for k, v := range s.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range s.ByPublishStatus {
		resp.ByPublishStatus[string(k)] = v
	}
	return resp
}
