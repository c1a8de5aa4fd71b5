package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ============================================
// Commands
// ============================================

type InviteMemberCommand struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,oneof=owner member"`
}

type RemoveMemberCommand struct {
	MemberID string `json:"memberId" validate:"required,max=64"`
}

type UpdateMemberRoleCommand struct {
	MemberID string `json:"memberId" validate:"required,max=64"`
	Role     string `json:"role" validate:"required,oneof=owner member"`
}

// AcceptInvitationCommand carries exactly one of Token or InvitationID.
type AcceptInvitationCommand struct {
	Token        string `json:"token" validate:"required_without=InvitationID,excluded_with=InvitationID,max=128"`
	InvitationID string `json:"invitationId" validate:"required_without=Token,max=64"`
}

type RejectInvitationCommand struct {
	InvitationID string `json:"invitationId" validate:"required,max=64"`
}

type LeaveTeamCommand struct{}

type DeleteAccountCommand struct {
	Confirmation ConfirmationPhrase `json:"confirmation" validate:"required"`
}

// ============================================
// Action pipeline
// ============================================

// Handler runs a validated command for the caller.
type Handler[C any] func(ctx context.Context, cmd C, id Identity) (*Result, error)

// Action is a validation stage composed with a Handler. Every outcome is
// reported as a *Result or a typed *Error.
type Action[C any] struct {
	name     string
	validate *validator.Validate
	handle   Handler[C]
	recorder Recorder
	log      *zap.SugaredLogger
}

func newAction[C any](name string, v *validator.Validate, rec Recorder, log *zap.SugaredLogger, h Handler[C]) *Action[C] {
	return &Action[C]{name: name, validate: v, handle: h, recorder: rec, log: log}
}

// Name is the operation label used in logs and metrics.
func (a *Action[C]) Name() string { return a.name }

func (a *Action[C]) Execute(ctx context.Context, cmd C, id Identity) (*Result, error) {
	res, err := a.run(ctx, cmd, id)
	if err == nil {
		a.recorder.ObserveTransition(a.name, "ok")
		return res, nil
	}

	typed := AsError(err)
	a.recorder.ObserveTransition(a.name, string(typed.Code))
	if typed.Code == CodeInternal {
		a.log.Errorw("Action failed", "operation", a.name, "user_id", id.UserID, "error", err)
	} else {
		a.log.Infow("Action rejected", "operation", a.name, "user_id", id.UserID, "code", typed.Code, "message", typed.Message)
	}
	return nil, typed
}

func (a *Action[C]) run(ctx context.Context, cmd C, id Identity) (*Result, error) {
	if id.UserID == "" {
		return nil, forbidden("authentication required")
	}
	if err := Validate(a.validate, cmd); err != nil {
		return nil, err
	}
	return a.handle(ctx, cmd, id)
}

// NewValidator returns a validator that names fields by their json tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks cmd against its struct tags and reports the first failure
// as a ValidationError.
func Validate(v *validator.Validate, cmd interface{}) error {
	err := v.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError("invalid request")
	}
	return validationError("%s", describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return "either token or invitationId is required"
	case "excluded_with":
		return "provide either token or invitationId, not both"
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ============================================
// Actions
// ============================================

// Actions is the surface every transport calls into.
type Actions struct {
	InviteMember     *Action[InviteMemberCommand]
	RemoveMember     *Action[RemoveMemberCommand]
	UpdateMemberRole *Action[UpdateMemberRoleCommand]
	AcceptInvitation *Action[AcceptInvitationCommand]
	RejectInvitation *Action[RejectInvitationCommand]
	LeaveTeam        *Action[LeaveTeamCommand]
	DeleteAccount    *Action[DeleteAccountCommand]
}

func NewActions(
	invitations InvitationService,
	membership MembershipService,
	accounts AccountService,
	rec Recorder,
	log *zap.SugaredLogger,
) *Actions {
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	v := NewValidator()

	return &Actions{
		InviteMember: newAction("invite_member", v, rec, log,
			func(ctx context.Context, cmd InviteMemberCommand, id Identity) (*Result, error) {
				inv, err := invitations.Invite(ctx, id, cmd.Email, cmd.Role)
				if err != nil {
					return nil, err
				}
				return &Result{Message: fmt.Sprintf("Invitation sent to %s", inv.Email)}, nil
			}),
		RemoveMember: newAction("remove_member", v, rec, log,
			func(ctx context.Context, cmd RemoveMemberCommand, id Identity) (*Result, error) {
				if err := membership.RemoveMember(ctx, id, cmd.MemberID); err != nil {
					return nil, err
				}
				return &Result{Message: "Member removed from the team"}, nil
			}),
		UpdateMemberRole: newAction("update_member_role", v, rec, log,
			func(ctx context.Context, cmd UpdateMemberRoleCommand, id Identity) (*Result, error) {
				if err := membership.UpdateRole(ctx, id, cmd.MemberID, cmd.Role); err != nil {
					return nil, err
				}
				return &Result{Message: fmt.Sprintf("Member role updated to %s", cmd.Role)}, nil
			}),
		AcceptInvitation: newAction("accept_invitation", v, rec, log,
			func(ctx context.Context, cmd AcceptInvitationCommand, id Identity) (*Result, error) {
				if err := invitations.Accept(ctx, id, cmd.Token, cmd.InvitationID); err != nil {
					return nil, err
				}
				return &Result{Message: "You have joined the team"}, nil
			}),
		RejectInvitation: newAction("reject_invitation", v, rec, log,
			func(ctx context.Context, cmd RejectInvitationCommand, id Identity) (*Result, error) {
				if err := invitations.Reject(ctx, id, cmd.InvitationID); err != nil {
					return nil, err
				}
				return &Result{Message: "Invitation rejected"}, nil
			}),
		LeaveTeam: newAction("leave_team", v, rec, log,
			func(ctx context.Context, _ LeaveTeamCommand, id Identity) (*Result, error) {
				if err := membership.Leave(ctx, id); err != nil {
					return nil, err
				}
				return &Result{Message: "You have left the team"}, nil
			}),
		DeleteAccount: newAction("delete_account", v, rec, log,
			func(ctx context.Context, cmd DeleteAccountCommand, id Identity) (*Result, error) {
				if err := accounts.DeleteAccount(ctx, id, cmd.Confirmation); err != nil {
					return nil, err
				}
				return &Result{Message: "Your account has been deleted"}, nil
			}),
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(string, string) {}
