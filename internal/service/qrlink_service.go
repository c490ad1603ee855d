package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type qrStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// QRLinkService mints and validates the signed tokens embedded in the
// self check-in QR codes handed to students. Tokens are stateless; the
// signature plus expiry is the whole credential.
type QRLinkService struct {
	studentRepo qrStudentRepository
	secret      []byte
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewQRLinkService constructs the QR link service.
func NewQRLinkService(students qrStudentRepository, secret string, ttl time.Duration, logger *zap.Logger) *QRLinkService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRLinkService{
		studentRepo: students,
		secret:      []byte(secret),
		ttl:         ttl,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// QRLink is a minted check-in credential for one student.
type QRLink struct {
	StudentID string    `json:"student_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Generate mints a signed check-in token for an active student.
func (s *QRLinkService) Generate(ctx context.Context, studentID string) (*QRLink, error) {
	if len(s.secret) == 0 {
		return nil, appErrors.Wrap(fmt.Errorf("signing secret missing"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "qr links not configured")
	}

	student, err := s.studentRepo.FindByID(ctx, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.ErrStudentNotFoundOrInactive
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if !student.Active {
		return nil, appErrors.ErrStudentNotFoundOrInactive
	}

	expiresAt := s.now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(student.ID))
	payload := fmt.Sprintf("%s|%d", encodedID, expiresAt.Unix())
	token := strings.Join([]string{encodedID, fmt.Sprintf("%d", expiresAt.Unix()), s.sign(payload)}, ".")

	return &QRLink{StudentID: student.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve validates a token and returns the student it identifies.
func (s *QRLinkService) Resolve(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}
	encodedID, ts, signature := parts[0], parts[1], parts[2]

	payload := fmt.Sprintf("%s|%s", encodedID, ts)
	if !hmac.Equal([]byte(s.sign(payload)), []byte(signature)) {
		return "", fmt.Errorf("invalid token signature")
	}

	var expUnix int64
	if _, err := fmt.Sscanf(ts, "%d", &expUnix); err != nil {
		return "", fmt.Errorf("invalid timestamp")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", fmt.Errorf("token expired")
	}

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", fmt.Errorf("decode student id: %w", err)
	}
	return string(rawID), nil
}

func (s *QRLinkService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
