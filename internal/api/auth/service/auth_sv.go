package authService

import (
	"TryOnGolang/internal/api/auth"
	"TryOnGolang/internal/entity"
	contextPkg "TryOnGolang/pkg/context"
	jwtPkg "TryOnGolang/pkg/jwt"
	"context"
	"crypto/subtle"
	"github.com/sirupsen/logrus"
	"strconv"
	"time"
)

var jwtSign = jwtPkg.Sign

func (s *authService) Login(c context.Context, req auth.LoginAdminRequest) (auth.LoginAdminResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if s.admin.Username == "" || s.admin.PasswordHash == "" {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Error("Admin credentials are not configured")
		return auth.LoginAdminResponse{}, auth.ErrAdminNotConfigured
	}

	attemptsKey := failedLoginKey(req.Username)
	if attempts, err := s.redisServer.Get(c, attemptsKey); err == nil {
		if n, _ := strconv.Atoi(attempts); n >= maxFailedLogins {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"username":   req.Username,
				"attempts":   n,
			}).Warn("Login locked after repeated failures")
			return auth.LoginAdminResponse{}, auth.ErrTooManyLoginAttempts
		}
	}

	sameUser := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
	if err := s.bcryptUtils.ComparePassword(s.admin.PasswordHash, req.Password); err != nil || !sameUser {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"username":   req.Username,
		}).Warn("Admin login failed")

		if _, err := s.redisServer.Incr(c, attemptsKey, failedLoginWindow); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to record login attempt")
		}
		return auth.LoginAdminResponse{}, auth.ErrInvalidUsernameOrPassword
	}

	if err := s.redisServer.Delete(c, attemptsKey); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to reset login attempts")
	}

	token, expired, err := s.sign(map[string]interface{}{
		"id":       "admin:" + s.admin.Username,
		"username": s.admin.Username,
		"role":     entity.RoleAdmin,
	}, tokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign token")
		return auth.LoginAdminResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
	}).Info("Token created")

	return auth.LoginAdminResponse{
		AccessToken:      token,
		ExpiresInMinutes: time.Until(time.Unix(expired, 0)).Minutes(),
	}, nil
}

func failedLoginKey(username string) string {
	return "auth:failed_login:" + username
}
