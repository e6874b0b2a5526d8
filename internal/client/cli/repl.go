package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	hasOpenList() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Lists(ctx context.Context) error
	CreateList(ctx context.Context) error
	OpenList(ctx context.Context, arg string) error
	CloseList(ctx context.Context) error
	Show(ctx context.Context) error
	AddItem(ctx context.Context) error
	ToggleItem(ctx context.Context, arg string) error
	EditItem(ctx context.Context, arg string) error
	DeleteItem(ctx context.Context, arg string) error
	RenameList(ctx context.Context) error
	DeleteList(ctx context.Context) error
	Categories(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the listsync CLI.
//
// It reads a line, parses the first token as the command, and dispatches to
// methods on 'a'. Unknown commands are reported back to the user. The loop
// exits on EOF or when the user types "exit" or "quit".
//
// Any errors returned by command handlers are printed here; this keeps the
// loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ls> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err == io.EOF {
				return
			}
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		var cmdErr error
		switch cmd {
		case "help":
			printHelp(a)

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "l", "lists":
			cmdErr = a.Lists(ctx)

		case "create":
			cmdErr = a.CreateList(ctx)

		case "open":
			cmdErr = a.OpenList(ctx, arg)

		case "close":
			cmdErr = a.CloseList(ctx)

		case "s", "show":
			cmdErr = a.Show(ctx)

		case "add":
			cmdErr = a.AddItem(ctx)

		case "toggle":
			cmdErr = a.ToggleItem(ctx, arg)

		case "edit":
			cmdErr = a.EditItem(ctx, arg)

		case "del":
			cmdErr = a.DeleteItem(ctx, arg)

		case "rename":
			cmdErr = a.RenameList(ctx)

		case "dellist":
			cmdErr = a.DeleteList(ctx)

		case "categories":
			cmdErr = a.Categories(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
		if err == io.EOF {
			return
		}
	}
}

func printHelp(a execIface) {
	switch {
	case !a.isLoggedIn():
		printlnFn("Available commands: register, login, exit")
	case !a.hasOpenList():
		printlnFn("Available commands: (l)ists, create, open <id>, categories, logout, exit")
	default:
		printlnFn("Available commands: (s)how, add, toggle <item>, edit <item>, del <item>, rename, dellist, close, categories, logout, exit")
	}
}
