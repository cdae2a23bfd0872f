package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/alphabot-ai/fritter/internal/client"
	"github.com/alphabot-ai/fritter/internal/model"
)

var seedUsers = []string{"ada", "grace", "linus", "barbara", "ken"}

var seedFreets = []string{
	"Just set up my Fritter account. Hello world!",
	"Hot take: tabs are better than spaces.",
	"Reading about consensus algorithms on a Sunday afternoon.",
	"Coffee count today: 4. Bugs fixed: 1.",
	"Does anyone else name their test users after computer scientists?",
	"Shipped it. Now waiting for the pager.",
	"140 characters is plenty if you think before you type.",
}

var seedComments = []string{
	"Totally agree.",
	"Strong disagree, but respect.",
	"This made my day.",
	"Source?",
	"Same here!",
	"Bold of you to post this on a Monday.",
	"Bookmarking this.",
}

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate a running server with demo users, freets, comments and reactions",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "fritter", "Password for every demo user")
}

func runSeed(cmd *cobra.Command, args []string) error {
	url := serverURL()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeding %s...\n", url)

	var clients []*client.Client
	for _, name := range seedUsers {
		c := client.New(url)
		if _, err := c.Register(name, seedPassword); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		if _, err := c.Login(name, seedPassword); err != nil {
			return fmt.Errorf("login %s: %w", name, err)
		}
		fmt.Fprintf(out, "✓ Registered user: %s\n", name)
		clients = append(clients, c)
	}

	var freetIDs []string
	for i, content := range seedFreets {
		f, err := clients[i%len(clients)].PostFreet(content)
		if err != nil {
			return fmt.Errorf("post freet: %w", err)
		}
		freetIDs = append(freetIDs, f.ID)
	}
	fmt.Fprintf(out, "✓ Posted %d freets\n", len(freetIDs))

	var commentCount, reactionCount int
	for _, freetID := range freetIDs {
		for j := 0; j < 1+rand.Intn(3); j++ {
			c := clients[rand.Intn(len(clients))]
			if _, err := c.PostComment(freetID, seedComments[rand.Intn(len(seedComments))]); err != nil {
				return fmt.Errorf("post comment: %w", err)
			}
			commentCount++
		}
		for _, c := range clients {
			if rand.Intn(2) == 0 {
				continue
			}
			emotion := model.Emotions[rand.Intn(len(model.Emotions))]
			if _, err := c.React(freetID, string(emotion)); err != nil {
				return fmt.Errorf("react: %w", err)
			}
			reactionCount++
		}
	}
	for i, c := range clients {
		if err := c.Follow(seedUsers[(i+1)%len(seedUsers)]); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
	}
	fmt.Fprintf(out, "✓ Added %d comments and %d reactions\n", commentCount, reactionCount)
	return nil
}
