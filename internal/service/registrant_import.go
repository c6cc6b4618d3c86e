package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/util"
)

var (
	emailHeaderAliases     = []string{"email", "email_address", "emailaddress", "attendee_email", "user_email"}
	classCodeHeaderAliases = []string{"class_code", "classcode", "class", "video_id", "videoid"}
)

type ImportError struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type ImportReport struct {
	Success               bool          `json:"success"`
	TotalRows             int           `json:"totalRows"`
	ValidRows             int           `json:"validRows"`
	UniqueEmails          int           `json:"uniqueEmails"`
	UpsertedUsers         int           `json:"upsertedUsers"`
	ProvisionedUsers      int           `json:"provisionedUsers"`
	ProvisionedClassCodes int           `json:"provisionedClassCodes"`
	SkippedInvalid        int           `json:"skippedInvalid"`
	FailedUsers           int           `json:"failedUsers"`
	Errors                []ImportError `json:"errors"`
	Message               string        `json:"message"`
}

type RegistrantImporter struct {
	vaults  *VaultService
	catalog *CatalogService
}

func NewRegistrantImporter(vaults *VaultService, catalog *CatalogService) *RegistrantImporter {
	return &RegistrantImporter{vaults: vaults, catalog: catalog}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	}), "_")
}

func findColumn(headers []string, aliases []string) int {
	want := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		want[normalizeHeader(a)] = struct{}{}
	}
	for i, h := range headers {
		if _, ok := want[normalizeHeader(h)]; ok {
			return i
		}
	}
	return -1
}

func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// registrantGroups maps each email to its distinct class codes, in first
// seen order.
type registrantGroups struct {
	order []string
	codes map[string][]string
	seen  map[string]map[string]struct{}
}

func (g *registrantGroups) add(email, code string) {
	if g.codes == nil {
		g.codes = make(map[string][]string)
		g.seen = make(map[string]map[string]struct{})
	}
	if _, ok := g.seen[email]; !ok {
		g.order = append(g.order, email)
		g.seen[email] = make(map[string]struct{})
	}
	if _, dup := g.seen[email][code]; dup {
		return
	}
	g.seen[email][code] = struct{}{}
	g.codes[email] = append(g.codes[email], code)
}

// Import registers every distinct email in the CSV and assigns its class
// codes from the catalog. A failure for one email is recorded and the rest
// continue.
func (s *RegistrantImporter) Import(ctx context.Context, source string) (*ImportReport, error) {
	if strings.TrimSpace(source) == "" {
		return nil, apperrors.MissingRequired("csv")
	}

	reader := csv.NewReader(strings.NewReader(source))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.ValidationError("CSV has no data rows")
	}
	if err != nil {
		return nil, apperrors.InvalidInput("csv", err.Error())
	}

	emailCol := findColumn(headers, emailHeaderAliases)
	codeCol := findColumn(headers, classCodeHeaderAliases)

	report := &ImportReport{Errors: []ImportError{}}
	var groups registrantGroups

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.InvalidInput("csv", err.Error())
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		report.TotalRows++

		email := strings.ToLower(cell(record, emailCol))
		code := cell(record, codeCol)
		if email == "" || code == "" || !util.IsLikelyEmail(email) {
			report.SkippedInvalid++
			continue
		}
		groups.add(email, code)
	}

	if report.TotalRows == 0 {
		return nil, apperrors.ValidationError("CSV has no data rows")
	}

	report.UniqueEmails = len(groups.order)
	for _, email := range groups.order {
		codes := groups.codes[email]
		report.ValidRows += len(codes)

		if err := s.importOne(ctx, email, codes); err != nil {
			report.FailedUsers++
			if len(report.Errors) < config.ImportErrorReportSize {
				report.Errors = append(report.Errors, ImportError{Email: email, Message: importErrorMessage(err)})
			}
			var stage importStageError
			if errors.As(err, &stage) && stage.userUpserted {
				report.UpsertedUsers++
			}
			continue
		}
		report.UpsertedUsers++
		report.ProvisionedUsers++
		report.ProvisionedClassCodes += len(codes)
	}

	report.Success = true
	report.Message = "CSV import completed."

	log.Info().
		Int("rows", report.TotalRows).
		Int("emails", report.UniqueEmails).
		Int("failed", report.FailedUsers).
		Msg("registrant import finished")

	return report, nil
}

type importStageError struct {
	err          error
	userUpserted bool
}

func (e importStageError) Error() string { return e.err.Error() }
func (e importStageError) Unwrap() error { return e.err }

func (s *RegistrantImporter) importOne(ctx context.Context, email string, codes []string) error {
	if _, _, err := s.vaults.UpsertUserAndVault(ctx, email); err != nil {
		return importStageError{err: err}
	}
	if _, err := s.catalog.Assign(ctx, AssignRequest{Email: email, VideoIDs: codes}); err != nil {
		return importStageError{err: err, userUpserted: true}
	}
	return nil
}

// importErrorMessage keeps operator-facing messages and hides internal ones.
func importErrorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return "Unexpected error"
}
