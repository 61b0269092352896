package access

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	errors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/core/common/validation"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/token"
)

// IssueQRToken mints an employee access token for one gate. Requests that
// would be denied at the reader are refused here: revoked devices always, and
// foreign building gates unless the user holds a delegation naming the gate.
func (s *Service) IssueQRToken(ctx context.Context, user *directory.User, dto QRTokenDTO) (*TokenResponse, error) {
	gateID := strings.TrimSpace(dto.GateID)
	nonce := strings.TrimSpace(dto.ReaderNonce)
	deviceID := strings.TrimSpace(dto.DeviceID)

	v := validation.NewValidator()
	v.Field("gateId", gateID).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := validation.ValidateReaderNonce(nonce); err != nil {
		return nil, err
	}

	gate, err := s.Directory.Gate(ctx, gateID)
	if err != nil {
		return nil, err
	}

	if deviceID != "" {
		revoked, err := s.Directory.IsDeviceRevoked(ctx, deviceID)
		if err != nil {
			return nil, errors.NewInternalError("failed to check device", err)
		}
		if revoked {
			s.logger.Warn("token refused for revoked device", "user_id", user.ID, "device_id", deviceID)
			return nil, errors.ErrDeviceRevoked
		}
	} else {
		deviceID = token.UnknownDevice
	}

	var delegatedBy string
	if !gate.OwnedBy(user.CompanyID) {
		grant, err := s.Delegations.FindGrant(ctx, user.ID, "", gate.ID, s.now())
		if err != nil {
			return nil, errors.NewInternalError("failed to load delegations", err)
		}
		if grant == nil {
			s.logger.Info("token refused for foreign building", "user_id", user.ID, "gate_id", gate.ID)
			return nil, errors.ErrGateNotAuthorized.WithMessage("Not allowed for this building")
		}
		delegatedBy = grant.DelegatorID
	}

	issued, err := s.Codec.Issue(token.AccessClaims{
		CompanyID:        user.CompanyID,
		GateID:           gate.ID,
		ReaderNonce:      nonce,
		DeviceID:         deviceID,
		DelegatedBy:      delegatedBy,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	}, s.tokenTTL)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue access token", err)
	}

	s.logger.Info("access token issued",
		"user_id", user.ID,
		"gate_id", gate.ID,
		"jti", issued.Claims.ID,
		"delegated_by", delegatedBy)
	return &TokenResponse{Token: issued.Token, ExpEpochSeconds: issued.ExpiresAt.Unix()}, nil
}

// IssueVisitorToken mints a token bound to a visitor pass. Pass checks run
// before the gate lookup.
func (s *Service) IssueVisitorToken(ctx context.Context, dto VisitorTokenDTO) (*VisitorTokenResponse, error) {
	passID := strings.TrimSpace(dto.PassID)
	gateID := strings.TrimSpace(dto.GateID)
	nonce := strings.TrimSpace(dto.ReaderNonce)

	v := validation.NewValidator()
	v.Field("passId", passID).Required()
	v.Field("gateId", gateID).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := validation.ValidateReaderNonce(nonce); err != nil {
		return nil, err
	}

	pass, err := s.Visitors.CheckIssuable(ctx, passID, gateID)
	if err != nil {
		return nil, err
	}
	gate, err := s.Directory.Gate(ctx, gateID)
	if err != nil {
		return nil, err
	}

	issued, err := s.Codec.Issue(token.AccessClaims{
		CompanyID:        pass.HostCompanyID,
		GateID:           gate.ID,
		ReaderNonce:      nonce,
		DeviceID:         token.VisitorDevice,
		VisitorPassID:    pass.ID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: token.VisitorSubject(pass.ID)},
	}, s.tokenTTL)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue visitor token", err)
	}

	s.logger.Info("visitor token issued", "pass_id", pass.ID, "gate_id", gate.ID, "jti", issued.Claims.ID)
	return &VisitorTokenResponse{
		Token:           issued.Token,
		ExpEpochSeconds: issued.ExpiresAt.Unix(),
		VisitorName:     pass.VisitorName,
		RemainingUses:   pass.Remaining(),
	}, nil
}
