// Package remote runs the reconstruction on another machine over SSH:
// create the scene directories, push the images up, execute the model
// script, stream its output, and pull the results back down.
package remote

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config is the connection half of the remote runner
type Config struct {
	Host    string `json:"host"`    // host or host:port. Port defaults to 22
	User    string `json:"user"`    // Remote username
	KeyFile string `json:"keyFile"` // Private key path. Empty means use the ssh-agent
}

// Client is an SSH connection plus an SFTP channel on top of it
type Client struct {
	log  logs.Log
	conn *ssh.Client
	sftp *sftp.Client
}

// Dial connects and opens the SFTP subsystem.
// Host keys are checked against ~/.ssh/known_hosts when that file exists;
// otherwise we accept whatever the host presents, like the capture scripts
// this replaces.
func Dial(log logs.Log, cfg Config) (*Client, error) {
	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback(log),
	}
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("SSH connection to %v failed: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("Failed to open SFTP channel: %w", err)
	}
	log.Infof("Connected to %v@%v", cfg.User, addr)
	return &Client{
		log:  log,
		conn: conn,
		sftp: sftpClient,
	}, nil
}

func (c *Client) Close() error {
	c.sftp.Close()
	return c.conn.Close()
}

// MkdirAll creates the remote directory and any missing parents
func (c *Client) MkdirAll(remoteDir string) error {
	return c.sftp.MkdirAll(remoteDir)
}

// Upload copies a local file to remotePath
func (c *Client) Upload(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("Failed to create remote file %v: %w", remotePath, err)
	}
	_, err = io.Copy(dst, src)
	errClose := dst.Close()
	if err != nil {
		return fmt.Errorf("Upload of %v failed: %w", localPath, err)
	}
	return errClose
}

// Download copies a remote file to localPath
func (c *Client) Download(remotePath, localPath string) error {
	src, err := c.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("Failed to open remote file %v: %w", remotePath, err)
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	errClose := dst.Close()
	if err != nil {
		return fmt.Errorf("Download of %v failed: %w", remotePath, err)
	}
	return errClose
}

// ListDir returns the names of plain files inside remoteDir
func (c *Client) ListDir(remoteDir string) ([]string, error) {
	items, err := c.sftp.ReadDir(remoteDir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, item := range items {
		if !item.IsDir() {
			names = append(names, item.Name())
		}
	}
	return names, nil
}

// DownloadDir copies every plain file inside remoteDir into localDir
func (c *Client) DownloadDir(remoteDir, localDir string) error {
	names, err := c.ListDir(remoteDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		c.log.Infof("Copying %v to %v", name, localDir)
		if err := c.Download(path.Join(remoteDir, name), filepath.Join(localDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// Run executes cmd on the remote machine, streaming its output into stdout
// and stderr. Blocks until the command exits. There is deliberately no
// timeout: inference runs are long, and a hung host is an operator problem.
func (c *Client) Run(cmd string, stdout, stderr io.Writer) error {
	session, err := c.conn.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()
	session.Stdout = stdout
	session.Stderr = stderr
	if err := session.Run(cmd); err != nil {
		return fmt.Errorf("Remote command '%v' failed: %w", cmd, err)
	}
	return nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	if cfg.KeyFile != "" {
		keyB, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.ParsePrivateKey(keyB)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse private key %v: %w", cfg.KeyFile, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("No key file configured and no ssh-agent running")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, err
	}
	ag := agent.NewClient(conn)
	return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}, nil
}

func hostKeyCallback(log logs.Log) ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")
		if _, err := os.Stat(knownHostsPath); err == nil {
			if cb, err := knownhosts.New(knownHostsPath); err == nil {
				return cb
			}
		}
	}
	log.Warnf("No known_hosts file, accepting any host key")
	return ssh.InsecureIgnoreHostKey()
}
