package fsys

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero/sftpfs"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig describes a remote host to browse over SFTP.
type SFTPConfig struct {
	Addr     string // host:port
	User     string
	Password string
	KeyFile  string
	// Insecure skips host key verification against ~/.ssh/known_hosts.
	Insecure bool
	Timeout  time.Duration
}

type sftpCloser struct {
	sftp *sftp.Client
	ssh  *ssh.Client
}

func (c sftpCloser) Close() error {
	return errors.Join(c.sftp.Close(), c.ssh.Close())
}

func (c SFTPConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if c.KeyFile != "" {
		key, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("sftp: no key file or password given")
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if !c.Insecure {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating known_hosts: %w", err)
		}
		hostKeys, err = knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts: %w", err)
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}, nil
}

// NewSFTP connects to a remote host and returns an FS rooted at root there.
func NewSFTP(ctx context.Context, cfg SFTPConfig, root string, logger *zap.Logger) (*FS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.Addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", cfg.Addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("starting sftp session: %w", err)
	}

	if root == "" {
		if root, err = sftpClient.Getwd(); err != nil {
			sftpClient.Close()
			sshClient.Close()
			return nil, fmt.Errorf("resolving remote home: %w", err)
		}
	}

	logger.Info("sftp connected", zap.String("addr", cfg.Addr), zap.String("user", cfg.User), zap.String("root", root))
	f := New(sftpfs.New(sftpClient), root, logger)
	f.closer = sftpCloser{sftp: sftpClient, ssh: sshClient}
	return f, nil
}
