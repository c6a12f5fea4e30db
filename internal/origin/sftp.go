// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// SFTPStrategy fetches origins over sftp with password auth. Unlike the
// http strategies it cannot work anonymously, so a strategy row without
// credentials is a hard error rather than nothing-retrieved.
type SFTPStrategy struct {
	creds   CredentialGetter
	timeout time.Duration
}

func NewSFTPStrategy(creds CredentialGetter) *SFTPStrategy {
	return &SFTPStrategy{creds: creds, timeout: 30 * time.Second}
}

func (s *SFTPStrategy) Kind() assetdb.OriginStrategyKind {
	return assetdb.StrategySFTP
}

func (s *SFTPStrategy) LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, cos *assetdb.CustomerOriginStrategy) (*Response, error) {
	bc, err := s.creds.Get(ctx, cos)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for strategy %s: %w", cos.ID, err)
	}
	if bc == nil {
		return nil, fmt.Errorf("sftp strategy %s: %w", cos.ID, ErrMissingCredentials)
	}

	u, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("parsing sftp origin %s: %w", originURL, err)
	}
	host := u.Host
	if u.Port() == "" {
		host += ":22"
	}

	sshConfig := &ssh.ClientConfig{
		User: bc.User,
		Auth: []ssh.AuthMethod{ssh.Password(bc.Password)},
		// origin hosts are customer infrastructure, there is no key registry
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.timeout,
	}

	conn, err := ssh.Dial("tcp", host, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("dialing sftp host %s: %w", host, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening sftp session on %s: %w", host, err)
	}

	f, err := client.Open(u.Path)
	if err != nil {
		_ = client.Close()
		_ = conn.Close()
		if errors.Is(err, os.ErrNotExist) {
			logctx.FromContext(ctx).Warn("Origin file not found on sftp host",
				"assetId", id.String(), "origin", originURL)
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s on sftp host %s: %w", u.Path, host, err)
	}

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	return &Response{
		Body:          &sftpStream{file: f, client: client, conn: conn},
		ContentLength: size,
	}, nil
}

// sftpStream keeps the session and connection alive for the lifetime of
// the file stream and tears all three down on Close.
type sftpStream struct {
	file   *sftp.File
	client *sftp.Client
	conn   *ssh.Client
}

func (s *sftpStream) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *sftpStream) Close() error {
	return errors.Join(s.file.Close(), s.client.Close(), s.conn.Close())
}

var _ io.ReadCloser = (*sftpStream)(nil)
