package deployment

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// SSHDeployer uploads files via SCP over a lazily opened SSH connection
type SSHDeployer struct {
	keyPath   string
	deployURL string

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDeployer creates a new SSH deployer. deployURL has the form
// user@host:path.
func NewSSHDeployer(deployURL, keyPath string) *SSHDeployer {
	if keyPath == "" {
		keyPath = "deploy.pem"
	}
	return &SSHDeployer{
		keyPath:   keyPath,
		deployURL: deployURL,
	}
}

// ParseDeployURL parses a deploy URL in format: user@host:path
func ParseDeployURL(deployURL string) (user, host, remotePath string, err error) {
	if deployURL == "" {
		return "", "", "", fmt.Errorf("deploy URL is empty")
	}

	parts := strings.SplitN(deployURL, "@", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", "", fmt.Errorf("invalid deploy URL format: expected user@host:path")
	}
	user = parts[0]

	hostParts := strings.SplitN(parts[1], ":", 2)
	if len(hostParts) != 2 || hostParts[0] == "" {
		return "", "", "", fmt.Errorf("invalid deploy URL format: expected user@host:path")
	}

	return user, hostParts[0], hostParts[1], nil
}

func (d *SSHDeployer) connect() error {
	if d.client != nil {
		return nil
	}

	user, host, _, err := ParseDeployURL(d.deployURL)
	if err != nil {
		return fmt.Errorf("failed to parse deploy URL: %w", err)
	}

	keyData, err := os.ReadFile(d.keyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key file %s: %w", d.keyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse SSH private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // In production, use proper host key verification
		Timeout:         30 * time.Second,
	}

	d.client, err = ssh.Dial("tcp", net.JoinHostPort(host, "22"), config)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH server %s: %w", host, err)
	}

	log.Info().
		Str("host", host).
		Str("user", user).
		Msg("Successfully connected to SSH server")

	return nil
}

// Close closes the SSH connection
func (d *SSHDeployer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnect()
}

func (d *SSHDeployer) disconnect() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// Upload writes data to filename under the deploy path. A failed upload
// drops the connection so the next one reconnects.
func (d *SSHDeployer) Upload(filename string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := d.scp(filename, bytes.NewReader(data), int64(len(data))); err != nil {
		if cerr := d.disconnect(); cerr != nil {
			log.Debug().Err(cerr).Msg("Error closing SSH connection after failed upload")
		}
		return err
	}
	return nil
}

func (d *SSHDeployer) scp(filename string, content io.Reader, size int64) error {
	_, _, remotePath, err := ParseDeployURL(d.deployURL)
	if err != nil {
		return fmt.Errorf("failed to parse deploy URL: %w", err)
	}

	session, err := d.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	remoteFilePath := path.Join(remotePath, filename)

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	if err := session.Start(fmt.Sprintf("scp -t %s", remoteFilePath)); err != nil {
		return fmt.Errorf("failed to start SCP session: %w", err)
	}

	if _, err := fmt.Fprintf(stdin, "C0644 %d %s\n", size, filename); err != nil {
		return fmt.Errorf("failed to write SCP header: %w", err)
	}
	if _, err := io.Copy(stdin, content); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if _, err := stdin.Write([]byte{0}); err != nil {
		return fmt.Errorf("failed to write SCP end marker: %w", err)
	}

	stdin.Close()
	if err := session.Wait(); err != nil {
		return fmt.Errorf("SCP session failed: %w", err)
	}

	log.Info().
		Str("remote_path", remoteFilePath).
		Int64("size", size).
		Msg("Successfully deployed file via SCP")

	return nil
}
