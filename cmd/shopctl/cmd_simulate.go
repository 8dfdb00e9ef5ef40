package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const simulateMemorySize = 10

var (
	scriptPath string
	skipIndex  bool
)

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !skipIndex {
		products, err := core.Catalog.All(ctx)
		if err != nil {
			return err
		}
		n, err := core.Engine.IndexCatalog(ctx, products)
		if err != nil {
			color.Yellow("Catalog indexing failed (%v), retrieval will use lexical fallback", err)
		} else {
			color.HiBlack("%d products indexed", n)
		}
	}

	var in io.Reader = os.Stdin
	interactive := scriptPath == ""
	if !interactive {
		f, err := os.Open(scriptPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	orchestrator := core.NewOrchestrator()
	sess := store.NewSession(uuid.NewString(), simulateMemorySize)
	color.Cyan("=== SmartShop simulation (%s, session %s) ===", core.LLM.Name(), sess.ID)
	if interactive {
		color.HiBlack("Type a message, /cart to show the cart, /reset to start over, /quit to leave.")
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Print(color.YellowString("vous › "))
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !interactive {
			fmt.Println(color.YellowString("vous › ") + line)
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/cart":
			printCart(sess)
			continue
		case "/reset":
			sess.Reset()
			color.HiBlack("conversation reset")
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.Lock()
		resp := orchestrator.HandleTurn(ctx, sess, line)
		sess.Unlock()
		printTurn(resp)
	}
	return scanner.Err()
}

func printTurn(resp *agent.TurnResponse) {
	fmt.Printf("%s %s\n", color.GreenString("bot  ›"), resp.Message)
	if resp.Type != agent.ResponseText {
		fmt.Println(color.HiBlackString("       [%s]", resp.Type))
	}
	if resp.Product != nil && resp.Product.ImageURL != "" {
		fmt.Println(color.HiBlackString("       image: %s", resp.Product.ImageURL))
	}
	if resp.PendingChoice != nil {
		keys := make([]string, 0, len(resp.PendingChoice.Options))
		for k, action := range resp.PendingChoice.Options {
			keys = append(keys, fmt.Sprintf("%s=%s", k, action))
		}
		sort.Strings(keys)
		fmt.Println(color.HiBlackString("       choix en attente: %s", strings.Join(keys, ", ")))
	}
	for _, s := range resp.Suggestions {
		fmt.Println(color.CyanString("       • %s", s))
	}
}

func printCart(sess *store.Session) {
	sess.Lock()
	defer sess.Unlock()
	if len(sess.Cart) == 0 {
		color.HiBlack("panier vide")
		return
	}
	var total float64
	currency := "FCFA"
	for _, it := range sess.Cart {
		fmt.Printf("  %d × %s  %s\n", it.Quantity, it.Name, catalog.FormatPrice(it.Price, it.Currency))
		total += it.Price * float64(it.Quantity)
		if it.Currency != "" {
			currency = it.Currency
		}
	}
	color.Green("  total: %s", catalog.FormatPrice(total, currency))
}
