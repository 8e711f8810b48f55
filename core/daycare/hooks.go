package daycare

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
)

const statusTemplate = "daycare_status"

// NewOwnerHook returns the record.CreateHook creating the owner account of a signed up daycare,
// in the same transaction as the daycare itself.
func NewOwnerHook(usrSvc user.ServiceInterface) record.CreateHook {
	return func(ctx context.Context, tx record.Tx, rec record.Record, in record.Input) error {
		nd, ok := in.(*NewDaycare)
		if !ok {
			return nil
		}
		_, err := usrSvc.Create(ctx, user.NewUser{
			DaycareID:       rec.GetID(),
			Name:            nd.OwnerName,
			Email:           nd.OwnerEmail,
			Role:            user.RoleOwner,
			Password:        nd.OwnerPassword,
			PasswordConfirm: nd.OwnerPassword,
		}, tx.Executor())
		if err != nil {
			return prefixOwnerFields(err)
		}
		return nil
	}
}

// prefixOwnerFields reports the owner's field errors under the signup form names.
func prefixOwnerFields(err error) error {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		return errors.Wrap(err, "creating owner")
	}
	flds := make([]core.FieldError, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		switch f.Field {
		case "name", "email", "password":
			f.Field = "owner_" + f.Field
		case "password_confirm":
			continue
		}
		flds = append(flds, f)
	}
	return core.NewValidationError(vErr.Err, flds...)
}

type statusData struct {
	Name        string
	From        lifecycle.Status
	To          lifecycle.Status
	AllowsLogin bool
}

// NewStatusNotifier returns the record.StatusHook emailing the daycare's owners & managers
// whenever its status changes.
func NewStatusNotifier(usrSvc user.ServiceInterface, mailSvc core.EmailService, logger core.Logger) record.StatusHook {
	return func(ctx context.Context, rec record.Record, from lifecycle.Status) {
		d, ok := rec.(*Daycare)
		if !ok {
			return
		}

		active := true
		users, err := usrSvc.Query(ctx, user.QueryFilter{
			DaycareID: d.ID,
			Roles:     []string{user.RoleOwner, user.RoleManager},
			IsActive:  &active,
		}, nil)
		if err != nil {
			logger.Error(fmt.Sprintf("notifying daycare %s status change: %v", d.ID, err), err)
			return
		}
		if len(users) == 0 {
			return
		}

		to := make([]mail.Address, 0, len(users))
		for _, usr := range users {
			to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
		}
		mailSvc.SendMessages(&core.EmailMessage{
			To:           to,
			Subject:      fmt.Sprintf("%s is now %s", d.Name, d.Status),
			TemplateName: statusTemplate,
			TemplateData: statusData{
				Name:        d.Name,
				From:        from,
				To:          d.Status,
				AllowsLogin: d.AllowsLogin(),
			},
		})
	}
}
