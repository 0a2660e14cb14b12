package ssh

//go:generate mockery -name Client

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
)

const (
	authSockEnv      = "SSH_AUTH_SOCK"
	handshakeTimeout = 30 * time.Second
)

// Client runs commands on a remote host.
type Client interface {
	// Run runs `cmd` in a new session, and blocks until it exits. A non-zero
	// exit status is returned as an exec.ExitError.
	Run(ctx context.Context, cmd string, stdout, stderr io.Writer) error

	// Shell runs `cmd` in a new session with a pseudo-terminal, and blocks
	// until it exits.
	Shell(ctx context.Context, cmd string, term Terminal) error

	Close() error
}

// Terminal is the local terminal that's attached to a remote shell.
type Terminal struct {
	Stdin          io.Reader
	Stdout, Stderr io.Writer

	// Type is the value of TERM on the remote host.
	Type          string
	Width, Height int
}

type client struct {
	conn *ssh.Client
}

// Dial connects to `host`. Keys are taken from the ssh agent, and then from
// the host's identity files. The host key must be in the known hosts files.
func Dial(ctx context.Context, host Host) (Client, error) {
	hostKeyCallback, err := hostKeyCallback(host.KnownHostsFiles)
	if err != nil {
		return nil, err
	}

	var auth []ssh.AuthMethod
	if sock := os.Getenv(authSockEnv); sock != "" {
		agentConn, err := net.Dial("unix", sock)
		if err != nil {
			log.WithError(err).Debug("Failed to connect to ssh agent")
		} else {
			defer agentConn.Close()
			auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
		}
	}

	signers, err := loadSigners(host.IdentityFiles)
	if err != nil {
		return nil, err
	}
	if len(signers) != 0 {
		auth = append(auth, ssh.PublicKeys(signers...))
	}

	if len(auth) == 0 {
		return nil, errors.NewFriendlyError("No ssh keys are available for %s. "+
			"Start an ssh agent, or add an IdentityFile to your ssh config.", host.Alias)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", host.Address())
	if err != nil {
		return nil, errors.WithContext(err, "dial")
	}

	// The handshake doesn't take a context, so bound it with a deadline.
	deadline := time.Now().Add(handshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, errors.WithContext(err, "set deadline")
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, host.Address(), &ssh.ClientConfig{
		User:            host.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WithContext(err, "ssh handshake")
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, errors.WithContext(err, "clear deadline")
	}

	log.WithField("host", host.Alias).Debug("Connected over ssh")
	return client{conn: ssh.NewClient(sshConn, chans, reqs)}, nil
}

func (c client) Run(ctx context.Context, cmd string, stdout, stderr io.Writer) error {
	session, err := c.conn.NewSession()
	if err != nil {
		return errors.WithContext(err, "new session")
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	log.WithField("cmd", cmd).Debug("Running remote command")
	return wait(ctx, session, cmd)
}

func (c client) Shell(ctx context.Context, cmd string, term Terminal) error {
	session, err := c.conn.NewSession()
	if err != nil {
		return errors.WithContext(err, "new session")
	}
	defer session.Close()

	if term.Type == "" {
		term.Type = "xterm"
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(term.Type, term.Height, term.Width, modes); err != nil {
		return errors.WithContext(err, "request pty")
	}

	session.Stdin = term.Stdin
	session.Stdout = term.Stdout
	session.Stderr = term.Stderr

	log.WithField("cmd", cmd).Debug("Starting remote shell")
	return wait(ctx, session, cmd)
}

// wait runs `cmd` in the session. The remote command is sent SIGTERM if the
// context is cancelled first.
func wait(ctx context.Context, session *ssh.Session, cmd string) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		session.Close()
		return ctx.Err()
	}

	if exitErr, ok := err.(*ssh.ExitError); ok {
		return exec.ExitError{Command: "ssh", Code: exitErr.ExitStatus()}
	}
	if err != nil {
		return errors.WithContext(err, "run")
	}
	return nil
}

func (c client) Close() error {
	return c.conn.Close()
}

func hostKeyCallback(files []string) (ssh.HostKeyCallback, error) {
	var existing []string
	for _, path := range files {
		if ok, _ := afero.Exists(fs, path); ok {
			existing = append(existing, path)
		}
	}

	if len(existing) == 0 {
		return nil, errors.NewFriendlyError("None of the known hosts files "+
			"(%v) exist. Connect once with `ssh` to verify the host key.", files)
	}

	callback, err := knownhosts.New(existing...)
	if err != nil {
		return nil, errors.WithContext(err, "load known hosts")
	}
	return callback, nil
}

// loadSigners parses the identity files that exist. Keys protected by a
// passphrase are skipped since they can only be used through the agent.
func loadSigners(files []string) ([]ssh.Signer, error) {
	var signers []ssh.Signer
	for _, path := range files {
		pem, err := afero.ReadFile(fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.WithContext(err, "read "+path)
		}

		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			if _, ok := err.(*ssh.PassphraseMissingError); ok {
				log.WithField("path", path).Debug(
					"Skipping passphrase protected key. Add it to the ssh agent to use it.")
				continue
			}
			return nil, errors.WithContext(err, "parse "+path)
		}
		signers = append(signers, signer)
	}
	return signers, nil
}
