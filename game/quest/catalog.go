package quest

import "fmt"

// Template is a catalog entry. The level range of the quest it produces comes
// from the bracket the template was drawn from.
type Template struct {
	Objective   Objective `json:"objective"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	Target      string    `json:"target,omitempty"`
}

// Catalog holds the candidate templates for every (kind, bracket) pair.
type Catalog struct {
	buckets [kindCount][bracketCount][]Template
}

// Candidates returns the templates for kind and bracket. The slice must not
// be modified.
func (c *Catalog) Candidates(kind Kind, b Bracket) []Template {
	if c == nil || !kind.Valid() || !b.Valid() {
		return nil
	}
	return c.buckets[kind][b]
}

// Set replaces one bucket. Used by tests and by servers that ship their own
// catalog.
func (c *Catalog) Set(kind Kind, b Bracket, ts []Template) {
	c.buckets[kind][b] = append([]Template(nil), ts...)
}

// Len is the total number of templates across all buckets.
func (c *Catalog) Len() int {
	n := 0
	for k := range c.buckets {
		for b := range c.buckets[k] {
			n += len(c.buckets[k][b])
		}
	}
	return n
}

func t(o Objective, amount int, desc string) Template {
	return Template{Objective: o, Amount: amount, Description: desc}
}

// dungeonRun yields one template per dungeon q1..q10 for the given difficulty.
func dungeonRun(o Objective, difficulty string) []Template {
	out := make([]Template, 0, 10)
	for i := 1; i <= 10; i++ {
		out = append(out, Template{
			Objective:   o,
			Amount:      1,
			Description: fmt.Sprintf("Finish Q%d %s", i, difficulty),
			Target:      fmt.Sprintf("q%d", i),
		})
	}
	return out
}

func concat(parts ...[]Template) []Template {
	var out []Template
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// DefaultCatalog returns the built-in template table.
func DefaultCatalog() *Catalog {
	c := &Catalog{}

	c.buckets[KindDaily][Bracket1to49] = []Template{
		t(KillCurrentExpoNormal, 100, "Kill 100 current expo normal mobs"),
		t(KillCurrentExpoElite, 10, "Kill 10 current expo elite mobs"),
		t(KillCurrentExpoMiniBoss, 1, "Kill 1 current expo mini boss"),
		t(DropMagic, 5, "Drop 5 magic items"),
		t(DropExtraordinary, 2, "Drop 2 extraordinary items"),
		t(DropLegendary, 1, "Drop 1 legendary item"),
		t(LevelUp, 1, "Level up"),
		t(KillNormal, 500, "Kill 500 normal mobs"),
		t(KillElite, 20, "Kill 20 elite mobs"),
		t(DropQuestCraftingMaterials, 3, "Drop 3 quest crafting materials"),
		t(CraftItems, 3, "Craft 3 items"),
		t(OpenChests, 1, "Open 1 chest"),
	}
	c.buckets[KindDaily][Bracket50to64] = concat(
		[]Template{
			t(KillCurrentExpoNormal, 1000, "Kill 1000 current expo normal mobs"),
			t(KillNormal, 2500, "Kill 2500 normal mobs"),
			t(KillCurrentExpoElite, 25, "Kill 25 current expo elite mobs"),
			t(KillElite, 50, "Kill 50 elite mobs"),
			t(KillCurrentExpoMiniBoss, 1, "Kill 1 current expo mini boss"),
			t(KillMiniBoss, 5, "Kill 5 mini boss mobs"),
			t(KillBoss, 2, "Kill 2 boss mobs"),
			t(DropLegendary, 1, "Drop 1 legendary item"),
		},
		dungeonRun(FinishQInf, "Inf"),
		[]Template{
			t(DropLegendary, 3, "Drop 3 legendary items"),
			t(KillPlayers, 10, "Kill 10 players"),
			t(KillPlayers, 20, "Kill 20 players"),
			t(DropQuestCraftingMaterials, 5, "Drop 5 quest crafting materials"),
			t(DropCraftingMaterials, 50, "Drop 50 crafting materials"),
			t(CraftItems, 5, "Craft 5 items"),
			t(OpenLootboxes, 32, "Open 32 lootboxes"),
			t(OpenChests, 2, "Open 2 chests"),
		},
	)
	c.buckets[KindDaily][Bracket65to80] = concat(
		[]Template{
			t(KillCurrentExpoNormal, 5000, "Kill 5000 current expo normal mobs"),
			t(KillNormal, 10000, "Kill 10000 normal mobs"),
			t(KillCurrentExpoElite, 100, "Kill 100 current expo elite mobs"),
			t(KillElite, 250, "Kill 250 elite mobs"),
			t(KillCurrentExpoMiniBoss, 2, "Kill 2 current expo mini boss"),
			t(KillMiniBoss, 10, "Kill 10 mini boss mobs"),
			t(KillBoss, 5, "Kill 5 boss mobs"),
			t(DropLegendary, 3, "Drop 3 legendary items"),
		},
		dungeonRun(FinishQHell, "Hell"),
		[]Template{
			t(DropLegendary, 5, "Drop 5 legendary items"),
			t(DropUnique, 1, "Drop 1 unique item"),
			t(KillPlayers, 50, "Kill 50 players"),
			t(KillPlayers, 100, "Kill 100 players"),
			t(DropQuestCraftingMaterials, 10, "Drop 10 quest crafting materials"),
			t(DropCraftingMaterials, 100, "Drop 100 crafting materials"),
			t(CraftItems, 10, "Craft 10 items"),
			t(OpenLootboxes, 64, "Open 64 lootboxes"),
			t(OpenChests, 3, "Open 3 chests"),
		},
	)
	c.buckets[KindDaily][Bracket80Plus] = concat(
		[]Template{
			t(KillMiniBoss, 20, "Kill 20 mini boss mobs"),
			t(KillBoss, 10, "Kill 10 boss mobs"),
		},
		dungeonRun(FinishQBlood, "Blood"),
		[]Template{
			t(DropLegendary, 5, "Drop 5 legendary items"),
			t(DropUnique, 2, "Drop 2 unique items"),
			t(DropLegendary, 3, "Drop 3 legendary items"),
			t(KillPlayers, 100, "Kill 100 players"),
			t(KillPlayers, 200, "Kill 200 players"),
			t(DropQuestCraftingMaterials, 20, "Drop 20 quest crafting materials"),
			t(DropCraftingMaterials, 250, "Drop 250 crafting materials"),
			t(CraftItems, 25, "Craft 25 items"),
			t(OpenLootboxes, 128, "Open 128 lootboxes"),
			t(OpenChests, 5, "Open 5 chests"),
		},
	)

	c.buckets[KindWeekly][Bracket1to49] = []Template{
		t(KillCurrentExpoNormal, 500, "Kill 500 current expo normal mobs"),
		t(KillCurrentExpoElite, 50, "Kill 50 current expo elite mobs"),
		t(KillCurrentExpoMiniBoss, 5, "Kill 5 current expo mini boss"),
		t(DropMagic, 15, "Drop 15 magic items"),
		t(DropExtraordinary, 8, "Drop 8 extraordinary items"),
		t(DropLegendary, 3, "Drop 3 legendary items"),
		t(LevelUp, 3, "Level up 3 times"),
		t(KillNormal, 2000, "Kill 2000 normal mobs"),
		t(KillElite, 100, "Kill 100 elite mobs"),
		t(DropQuestCraftingMaterials, 10, "Drop 10 quest crafting materials"),
		t(CraftItems, 15, "Craft 15 items"),
		t(OpenChests, 5, "Open 5 chests"),
		t(CompleteDailyQuests, 3, "Complete 3 daily quests"),
		t(SpendHoursOnline, 6, "Spend 6 hours online"),
	}
	c.buckets[KindWeekly][Bracket50to64] = []Template{
		t(KillCurrentExpoNormal, 5000, "Kill 5000 current expo normal mobs"),
		t(KillNormal, 10000, "Kill 10000 normal mobs"),
		t(KillCurrentExpoElite, 100, "Kill 100 current expo elite mobs"),
		t(KillElite, 250, "Kill 250 elite mobs"),
		t(KillCurrentExpoMiniBoss, 5, "Kill 5 current expo mini boss"),
		t(KillMiniBoss, 25, "Kill 25 mini boss mobs"),
		t(KillBoss, 8, "Kill 8 boss mobs"),
		t(DropLegendary, 5, "Drop 5 legendary items"),
		// any Inf dungeon counts, so no specific target
		t(FinishQInf, 3, "Finish 3 random Q Inf dungeons"),
		t(DropLegendary, 10, "Drop 10 legendary items"),
		t(KillPlayers, 50, "Kill 50 players"),
		t(DropQuestCraftingMaterials, 15, "Drop 15 quest crafting materials"),
		t(DropCraftingMaterials, 200, "Drop 200 crafting materials"),
		t(CraftItems, 25, "Craft 25 items"),
		t(OpenLootboxes, 150, "Open 150 lootboxes"),
		t(OpenChests, 8, "Open 8 chests"),
		t(CompleteDailyQuests, 5, "Complete 5 daily quests"),
	}
	c.buckets[KindWeekly][Bracket65to80] = []Template{
		t(KillCurrentExpoNormal, 20000, "Kill 20000 current expo normal mobs"),
		t(KillNormal, 50000, "Kill 50000 normal mobs"),
		t(KillCurrentExpoElite, 400, "Kill 400 current expo elite mobs"),
		t(KillElite, 1000, "Kill 1000 elite mobs"),
		t(KillCurrentExpoMiniBoss, 10, "Kill 10 current expo mini boss"),
		t(KillMiniBoss, 50, "Kill 50 mini boss mobs"),
		t(KillBoss, 20, "Kill 20 boss mobs"),
		t(DropLegendary, 8, "Drop 8 legendary items"),
		t(FinishAllQHell, 1, "Finish all Q1-Q10 Hell"),
		t(DropLegendary, 15, "Drop 15 legendary items"),
		t(DropUnique, 3, "Drop 3 unique items"),
		t(KillPlayers, 200, "Kill 200 players"),
		t(DropQuestCraftingMaterials, 35, "Drop 35 quest crafting materials"),
		t(DropCraftingMaterials, 500, "Drop 500 crafting materials"),
		t(CraftItems, 40, "Craft 40 items"),
		t(OpenLootboxes, 300, "Open 300 lootboxes"),
		t(OpenChests, 12, "Open 12 chests"),
		t(CompleteDailyQuests, 6, "Complete 6 daily quests"),
	}
	c.buckets[KindWeekly][Bracket80Plus] = []Template{
		t(KillMiniBoss, 100, "Kill 100 mini boss mobs"),
		t(KillBoss, 40, "Kill 40 boss mobs"),
		t(FinishAllQBlood, 1, "Finish all Q1-Q10 Blood"),
		t(DropLegendary, 15, "Drop 15 legendary items"),
		t(DropUnique, 5, "Drop 5 unique items"),
		t(DropLegendary, 10, "Drop 10 legendary items"),
		t(KillPlayers, 400, "Kill 400 players"),
		t(DropQuestCraftingMaterials, 60, "Drop 60 quest crafting materials"),
		t(DropCraftingMaterials, 1000, "Drop 1000 crafting materials"),
		t(CraftItems, 80, "Craft 80 items"),
		t(OpenLootboxes, 500, "Open 500 lootboxes"),
		t(OpenChests, 20, "Open 20 chests"),
		t(CompleteDailyQuests, 7, "Complete 7 daily quests"),
	}

	c.buckets[KindMonthly][Bracket1to49] = []Template{
		t(KillCurrentExpoNormal, 2000, "Kill 2000 current expo normal mobs"),
		t(KillCurrentExpoElite, 200, "Kill 200 current expo elite mobs"),
		t(KillCurrentExpoMiniBoss, 20, "Kill 20 current expo mini boss"),
		t(DropMagic, 50, "Drop 50 magic items"),
		t(DropExtraordinary, 25, "Drop 25 extraordinary items"),
		t(DropLegendary, 10, "Drop 10 legendary items"),
		t(LevelUp, 10, "Level up 10 times"),
		t(KillNormal, 8000, "Kill 8000 normal mobs"),
		t(KillElite, 400, "Kill 400 elite mobs"),
		t(DropQuestCraftingMaterials, 30, "Drop 30 quest crafting materials"),
		t(CraftItems, 50, "Craft 50 items"),
		t(OpenChests, 20, "Open 20 chests"),
		t(CompleteDailyQuests, 15, "Complete 15 daily quests"),
		t(SpendHoursOnline, 40, "Spend 40 hours online"),
		t(CompleteWeeklyQuests, 1, "Complete weekly quest 1 time"),
	}
	c.buckets[KindMonthly][Bracket50to64] = []Template{
		t(KillCurrentExpoNormal, 25000, "Kill 25000 current expo normal mobs"),
		t(KillNormal, 60000, "Kill 60000 normal mobs"),
		t(KillCurrentExpoElite, 500, "Kill 500 current expo elite mobs"),
		t(KillElite, 1500, "Kill 1500 elite mobs"),
		t(KillCurrentExpoMiniBoss, 25, "Kill 25 current expo mini boss"),
		t(KillMiniBoss, 120, "Kill 120 mini boss mobs"),
		t(KillBoss, 40, "Kill 40 boss mobs"),
		t(DropLegendary, 20, "Drop 20 legendary items"),
		t(FinishAllQInf, 3, "Finish all Q1-Q10 Inf (complete set 3 times)"),
		t(DropLegendary, 35, "Drop 35 legendary items"),
		t(KillPlayers, 300, "Kill 300 players"),
		t(DropQuestCraftingMaterials, 60, "Drop 60 quest crafting materials"),
		t(DropCraftingMaterials, 1000, "Drop 1000 crafting materials"),
		t(CraftItems, 100, "Craft 100 items"),
		t(OpenLootboxes, 800, "Open 800 lootboxes"),
		t(OpenChests, 35, "Open 35 chests"),
		t(CompleteDailyQuests, 20, "Complete 20 daily quests"),
		t(CompleteWeeklyQuests, 2, "Complete weekly quest 2 times"),
	}
	c.buckets[KindMonthly][Bracket65to80] = []Template{
		t(KillCurrentExpoNormal, 100000, "Kill 100000 current expo normal mobs"),
		t(KillNormal, 250000, "Kill 250000 normal mobs"),
		t(KillCurrentExpoElite, 2000, "Kill 2000 current expo elite mobs"),
		t(KillElite, 5000, "Kill 5000 elite mobs"),
		t(KillCurrentExpoMiniBoss, 50, "Kill 50 current expo mini boss"),
		t(KillMiniBoss, 250, "Kill 250 mini boss mobs"),
		t(KillBoss, 100, "Kill 100 boss mobs"),
		t(DropLegendary, 30, "Drop 30 legendary items"),
		t(FinishAllQHell, 5, "Finish all Q1-Q10 Hell (complete set 5 times)"),
		t(DropLegendary, 50, "Drop 50 legendary items"),
		t(DropUnique, 15, "Drop 15 unique items"),
		t(KillPlayers, 1000, "Kill 1000 players"),
		t(DropQuestCraftingMaterials, 150, "Drop 150 quest crafting materials"),
		t(DropCraftingMaterials, 2500, "Drop 2500 crafting materials"),
		t(CraftItems, 200, "Craft 200 items"),
		t(OpenLootboxes, 1500, "Open 1500 lootboxes"),
		t(OpenChests, 50, "Open 50 chests"),
		t(CompleteDailyQuests, 25, "Complete 25 daily quests"),
		t(CompleteWeeklyQuests, 3, "Complete weekly quest 3 times"),
	}
	c.buckets[KindMonthly][Bracket80Plus] = []Template{
		t(KillMiniBoss, 500, "Kill 500 mini boss mobs"),
		t(KillBoss, 200, "Kill 200 boss mobs"),
		t(FinishAllQBlood, 8, "Finish all Q1-Q10 Blood (complete set 8 times)"),
		t(DropLegendary, 50, "Drop 50 legendary items"),
		t(DropUnique, 20, "Drop 20 unique items"),
		t(DropLegendary, 40, "Drop 40 legendary items"),
		t(KillPlayers, 2000, "Kill 2000 players"),
		t(DropQuestCraftingMaterials, 300, "Drop 300 quest crafting materials"),
		t(DropCraftingMaterials, 5000, "Drop 5000 crafting materials"),
		t(CraftItems, 400, "Craft 400 items"),
		t(OpenLootboxes, 3000, "Open 3000 lootboxes"),
		t(OpenChests, 100, "Open 100 chests"),
		t(CompleteDailyQuests, 20, "Complete all daily quests for 20 days"),
		t(DropMythic, 1, "Drop 1 mythic item"),
		t(CompleteWeeklyQuests, 4, "Complete weekly quest 4 times"),
	}
	return c
}
