// Package smbkit implements an SMB1/CIFS transfer client for reading and
// writing single files on remote shares, authenticated with NTLM
// challenge/response.
//
// # Overview
//
// smbkit speaks the "NT LM 0.12" dialect over a NetBIOS session on TCP
// port 445 (optionally TLS-wrapped for smbs URLs). The protocol engine is
// readiness-driven: two cooperating state machines advance a connection
// (NEGOTIATE, SESSION_SETUP_ANDX) and a per-file request (TREE_CONNECT,
// NT_CREATE, READ or WRITE loop, CLOSE, TREE_DISCONNECT) one bounded step
// per drive call, without ever blocking on the socket.
//
// # Basic Usage
//
// Download a file from a share:
//
//	client, err := smbkit.Dial(&smbkit.Config{
//	    Host:     "fileserver.example.com",
//	    Username: "CORP\\jdoe",
//	    Password: "secret123",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	var buf bytes.Buffer
//	n, err := client.Download(ctx, "/public/hello.txt", &buf)
//
// Upload works the same way through Client.Upload, overwriting the remote
// file if it exists.
//
// # Driving the engine directly
//
// The Client wraps a poll loop around the engine; callers embedding smbkit
// in their own event loop use Conn and Request directly. SelectorHint
// reports whether the engine next needs the socket readable or writable,
// and the Drive methods return (done, err) per call:
//
//	conn := smbkit.NewConn(cfg, transport)
//	for {
//	    done, err := conn.DriveConnection()
//	    ...
//	}
//
// # Authentication
//
// Usernames of the form "domain/user" or "domain\user" carry an explicit
// domain; otherwise the remote host name is used as the domain. The NTLM
// exchange sends the 24-byte LM response and, unless
// Config.DisableNTResponse is set, the 24-byte NT response. Most servers
// reject LM-only logins, so disabling NT responses is only useful against
// legacy equipment.
//
// SMB2/3, message signing, encryption, DFS and Unicode paths are out of
// scope; connect to SMB2-only servers with an SMB2 client instead.
package smbkit
