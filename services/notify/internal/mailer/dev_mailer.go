package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/praveengys/connectify-sub000/pkg/logger"
)

type DevMailer struct {
	out io.Writer
}

func NewDevMailer() *DevMailer {
	return &DevMailer{out: os.Stdout}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return errNoRecipient
	}
	logger.InfoContext(ctx, "[DEV MAIL] Email",
		"to", msg.ToEmail,
		"name", msg.ToName,
		"subject", msg.Subject,
	)

	fmt.Fprintf(d.out, "\n"+
		"----------------------------------------------------------------\n"+
		"EMAIL (DEV MODE)\n"+
		"----------------------------------------------------------------\n"+
		"To: %s (%s)\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"----------------------------------------------------------------\n\n",
		msg.ToEmail, msg.ToName, msg.Subject, msg.Text)

	return nil
}
