// Package grpcserver exposes the CyberCompanion gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/cyber-companion/internal/api"
	"github.com/and161185/cyber-companion/internal/convert"
	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/service"
)

// Services groups the application services behind the API.
type Services struct {
	Accounts service.AccountService
	Security service.SecurityService
	Pets     service.PetService
	Scores   service.ScoreService
}

// Server wires services into gRPC handlers. It expects AuthUnary in front of it.
type Server struct {
	svc Services
}

var _ api.CompanionServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(svc Services) *Server {
	return &Server{svc: svc}
}

// toStatus maps domain sentinels to gRPC codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrProviderUnavailable):
		return status.Error(codes.Unavailable, "breach provider unavailable")
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Error(codes.Aborted, "version conflict")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func userFrom(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserIDFromCtx(ctx)
	if !ok || id == uuid.Nil {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

func reply(m map[string]any) (*structpb.Struct, error) {
	s, err := convert.Struct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return s, nil
}

func badRequest(err error) error { return status.Error(codes.InvalidArgument, err.Error()) }

// --- Security actions ---

// AnalyzePassword scores a password. Request: {password}.
func (s *Server) AnalyzePassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	pw, err := convert.Read(in).String("password")
	if err != nil {
		return nil, badRequest(err)
	}
	rep, err := s.svc.Security.AnalyzePassword(ctx, userID, pw)
	if err != nil {
		return nil, toStatus("analyze password", err)
	}
	return reply(convert.PasswordReport(rep))
}

// RecordAction appends an action. Request: {action_type, details?}.
func (s *Server) RecordAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := convert.Read(in)
	at, err := r.String("action_type")
	if err != nil {
		return nil, badRequest(err)
	}
	details, err := r.Map("details")
	if err != nil {
		return nil, badRequest(err)
	}
	a, err := s.svc.Security.RecordAction(ctx, userID, model.ActionType(at), details)
	if err != nil {
		return nil, toStatus("record action", err)
	}
	return reply(convert.Action(*a))
}

// CheckBreach looks an e-mail up. Request: {email, force?}.
func (s *Server) CheckBreach(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := convert.Read(in)
	email, err := r.String("email")
	if err != nil {
		return nil, badRequest(err)
	}
	force, err := r.Bool("force")
	if err != nil {
		return nil, badRequest(err)
	}
	rep, err := s.svc.Security.CheckBreach(ctx, userID, email, force)
	if err != nil {
		return nil, toStatus("check breach", err)
	}
	return reply(convert.BreachReport(rep))
}

// SetTwoFactor stores the 2FA flag. Request: {enabled}.
func (s *Server) SetTwoFactor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := convert.Read(in)
	if !r.Has("enabled") {
		return nil, status.Error(codes.InvalidArgument, "enabled is required")
	}
	enabled, err := r.Bool("enabled")
	if err != nil {
		return nil, badRequest(err)
	}
	if err := s.svc.Security.SetTwoFactor(ctx, userID, enabled); err != nil {
		return nil, toStatus("set two factor", err)
	}
	return reply(map[string]any{"two_factor_enabled": enabled})
}

// --- Pet ---

// RecomputeMood recomputes the pet mood and writes a diary entry.
func (s *Server) RecomputeMood(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := s.svc.Pets.RecomputeMood(ctx, userID)
	if err != nil {
		return nil, toStatus("recompute mood", err)
	}
	return reply(convert.MoodReport(rep))
}

// MoodDiary lists diary entries. Request: {limit?}.
func (s *Server) MoodDiary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := convert.Read(in).Int("limit")
	if err != nil {
		return nil, badRequest(err)
	}
	entries, err := s.svc.Pets.MoodDiary(ctx, userID, limit)
	if err != nil {
		return nil, toStatus("mood diary", err)
	}
	return reply(convert.MoodDiary(entries))
}

// RenamePet changes name and appearance. Request: {name, pet_type?}.
func (s *Server) RenamePet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := convert.Read(in)
	name, err := r.String("name")
	if err != nil {
		return nil, badRequest(err)
	}
	pt, err := r.String("pet_type")
	if err != nil {
		return nil, badRequest(err)
	}
	p, err := s.svc.Pets.RenamePet(ctx, userID, name, model.PetType(pt))
	if err != nil {
		return nil, toStatus("rename pet", err)
	}
	return reply(convert.Pet(*p))
}

// --- Scores ---

// WeeklyScore returns the trailing 7-day score.
func (s *Server) WeeklyScore(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := s.svc.Scores.WeeklyScore(ctx, userID)
	if err != nil {
		return nil, toStatus("weekly score", err)
	}
	return reply(convert.WeeklyReport(rep))
}

// OverallGrade returns the profile grade.
func (s *Server) OverallGrade(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := s.svc.Scores.OverallGrade(ctx, userID)
	if err != nil {
		return nil, toStatus("overall grade", err)
	}
	return reply(convert.OverallReport(rep))
}

// Dashboard returns the home screen aggregate.
func (s *Server) Dashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.svc.Scores.Dashboard(ctx, userID)
	if err != nil {
		return nil, toStatus("dashboard", err)
	}
	return reply(convert.Dashboard(d))
}

// Tips returns personalized advice.
func (s *Server) Tips(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	tips, err := s.svc.Scores.Tips(ctx, userID)
	if err != nil {
		return nil, toStatus("tips", err)
	}
	return reply(convert.Tips(tips))
}

// --- Account ---

// UpdatePreferences stores notification settings. Request: {email_notifications, weekly_reports}.
func (s *Server) UpdatePreferences(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := convert.Read(in)
	if !r.Has("email_notifications") || !r.Has("weekly_reports") {
		return nil, status.Error(codes.InvalidArgument, "email_notifications and weekly_reports are required")
	}
	email, err := r.Bool("email_notifications")
	if err != nil {
		return nil, badRequest(err)
	}
	weekly, err := r.Bool("weekly_reports")
	if err != nil {
		return nil, badRequest(err)
	}
	p, err := s.svc.Accounts.UpdatePreferences(ctx, userID, email, weekly)
	if err != nil {
		return nil, toStatus("update preferences", err)
	}
	return reply(convert.Profile(*p))
}

// DeleteAccount removes the caller and all owned data.
func (s *Server) DeleteAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Accounts.DeleteAccount(ctx, userID); err != nil {
		return nil, toStatus("delete account", err)
	}
	return reply(map[string]any{"deleted": true})
}
