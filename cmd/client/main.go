// Command client is a line-oriented interactive client for the game
// server, useful for manual play and debugging.
//
// Commands:
//
//	login <name>        log in under a username
//	users               list logged-in players and ratings
//	invite <name> <1|2> invite a player (1: they move first, 2: you do)
//	revoke <id>         revoke an invitation you sent
//	accept <id>         accept an invitation sent to you
//	decline <id>        decline an invitation sent to you
//	move <id> <cell>    place your piece, e.g. "move 0 5"
//	resign <id>         resign a game in progress
//	quit                disconnect and exit
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/DanielLaszczych/TicTacToe/internal/proto"
)

var (
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed)
	noteColor   = color.New(color.FgYellow)
	boardColor  = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgWhite, color.Bold)
)

func main() {
	addr := flag.String("addr", "localhost:3333", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		errColor.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	okColor.Printf("connected to %s\n", *addr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	promptColor.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			break
		}
		if line != "" {
			if err := send(conn, line); err != nil {
				errColor.Printf("send: %v\n", err)
				break
			}
		}
		promptColor.Print("> ")
	}
	conn.Close()
	<-done
}

// send parses one command line and writes the corresponding request packet.
func send(conn net.Conn, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	hdr := &proto.Header{}
	var payload []byte

	switch cmd {
	case "login":
		if len(args) != 1 {
			return usageErr("login <name>")
		}
		hdr.Type = proto.LoginPkt
		payload = []byte(args[0])
	case "users":
		hdr.Type = proto.UsersPkt
	case "invite":
		if len(args) != 2 || (args[1] != "1" && args[1] != "2") {
			return usageErr("invite <name> <1|2>")
		}
		hdr.Type = proto.InvitePkt
		hdr.Role = args[1][0] - '0'
		payload = []byte(args[0])
	case "revoke", "accept", "decline", "resign":
		if len(args) != 1 {
			return usageErr(cmd + " <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 0 || id > 255 {
			return usageErr(cmd + " <id>")
		}
		hdr.ID = uint8(id)
		switch cmd {
		case "revoke":
			hdr.Type = proto.RevokePkt
		case "accept":
			hdr.Type = proto.AcceptPkt
		case "decline":
			hdr.Type = proto.DeclinePkt
		case "resign":
			hdr.Type = proto.ResignPkt
		}
	case "move":
		if len(args) != 2 {
			return usageErr("move <id> <cell>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 0 || id > 255 {
			return usageErr("move <id> <cell>")
		}
		hdr.Type = proto.MovePkt
		hdr.ID = uint8(id)
		payload = []byte(args[1])
	default:
		noteColor.Printf("unknown command %q\n", cmd)
		return nil
	}

	return proto.WritePacket(conn, hdr, payload)
}

func usageErr(u string) error {
	noteColor.Printf("usage: %s\n", u)
	return nil
}

// receive renders server packets until the connection closes.
func receive(conn net.Conn) {
	for {
		hdr, payload, err := proto.ReadPacket(conn, 0)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				errColor.Printf("\nconnection error: %v\n", err)
			} else {
				noteColor.Println("\nserver closed the connection")
			}
			return
		}
		render(hdr, payload)
		promptColor.Print("> ")
	}
}

func render(hdr proto.Header, payload []byte) {
	fmt.Println()
	switch hdr.Type {
	case proto.AckPkt:
		okColor.Println("OK")
		if len(payload) > 0 {
			boardColor.Print(string(payload))
			if payload[len(payload)-1] != '\n' {
				fmt.Println()
			}
		}
	case proto.NackPkt:
		errColor.Println("request refused")
	case proto.InvitedPkt:
		role := "second (O)"
		if hdr.Role == 1 {
			role = "first (X)"
		}
		noteColor.Printf("%s invites you to play %s [invitation %d]\n", payload, role, hdr.ID)
	case proto.RevokedPkt:
		noteColor.Printf("invitation %d was revoked\n", hdr.ID)
	case proto.DeclinedPkt:
		noteColor.Printf("invitation %d was declined\n", hdr.ID)
	case proto.AcceptedPkt:
		okColor.Printf("invitation %d was accepted\n", hdr.ID)
		if len(payload) > 0 {
			boardColor.Print(string(payload))
		}
	case proto.MovedPkt:
		noteColor.Printf("[game %d]", hdr.ID)
		boardColor.Print(string(payload))
	case proto.ResignedPkt:
		noteColor.Printf("your opponent resigned game %d\n", hdr.ID)
	case proto.EndedPkt:
		switch hdr.Role {
		case 1:
			okColor.Printf("game %d over: X wins\n", hdr.ID)
		case 2:
			okColor.Printf("game %d over: O wins\n", hdr.ID)
		default:
			okColor.Printf("game %d over: draw\n", hdr.ID)
		}
	default:
		noteColor.Printf("unexpected packet %s\n", hdr.Type)
	}
}
