package behavior

import (
	"strings"

	"github.com/talgya/hearthvale/internal/decision"
)

func when(name string, f func(*Context) bool) Node { return NewCondition(name, ConditionFunc(f)) }
func do(name string, kind decision.Action, f func(*Context) Status) Node {
	return NewAction(name, kind, ActionFunc(f))
}

// NewNPCTree handles urgent needs, hunger, tiredness and loneliness in that
// order and idles otherwise.
func NewNPCTree(name string) *Tree {
	root := NewSelector("NPC Root",
		NewSequence("Handle Urgent Needs", when("Needs Urgent?", NeedsUrgent), do("Rest", decision.Rest, Rest)),
		NewSequence("Handle Hunger", when("Hungry?", Hungry), do("Eat", decision.Eat, EatFood)),
		NewSequence("Handle Tiredness", when("Tired?", Tired), do("Rest", decision.Rest, Rest)),
		NewSequence("Handle Loneliness", when("Lonely?", Lonely), do("Socialize", decision.Talk, Socialize)),
		do("Idle", decision.Wait, Idle),
	)
	return NewTree(name, root)
}

// NewFarmerTree farms in the morning, sells and works in the afternoon,
// talks with friends in the evening and sleeps at night.
func NewFarmerTree() *Tree {
	root := NewSelector("Farmer Root",
		NewSequence("Urgent Needs",
			when("Needs Urgent?", NeedsUrgent),
			NewSelector("Choose Urgent Action",
				NewSequence("Eat if Food", when("Has Food?", HasFood), do("Eat", decision.Eat, EatFood)),
				do("Rest", decision.Rest, Rest),
			),
		),
		NewSequence("Morning Farming", when("Is Morning?", IsMorning), do("Farm", decision.Work, Farm)),
		NewSequence("Afternoon Work",
			when("Is Afternoon?", IsAfternoon),
			NewSelector("Sell or Work",
				do("Sell Produce", decision.Trade, SellProduce),
				do("Work", decision.Work, Work),
			),
		),
		NewSequence("Evening Socialize",
			when("Is Evening?", IsEvening),
			when("Friend Nearby?", NearbyFriend),
			do("Talk", decision.Talk, TalkToNearby),
		),
		NewSequence("Night Rest", when("Is Night?", IsNight), do("Rest", decision.Rest, Rest)),
		do("Idle", decision.Wait, Idle),
	)
	return NewTree("Farmer Behavior", root)
}

// NewMerchantTree keeps shop hours and socializes in the evening.
func NewMerchantTree() *Tree {
	root := NewSelector("Merchant Root",
		NewSequence("Handle Needs", when("Needs Urgent?", NeedsUrgent), do("Rest", decision.Rest, Rest)),
		NewSequence("Business Hours",
			NewSelector("Is Business Time?", when("Morning?", IsMorning), when("Afternoon?", IsAfternoon)),
			do("Work", decision.Work, Work),
		),
		NewSequence("Evening", when("Evening?", IsEvening), do("Socialize", decision.Talk, Socialize)),
		do("Wait", decision.Wait, Wait),
	)
	return NewTree("Merchant Behavior", root)
}

// NewVillagerTree is the NPC tree with an evening gift for a nearby friend
// ahead of idling.
func NewVillagerTree() *Tree {
	t := NewNPCTree("Villager Behavior")
	root := t.Root().(*Selector)
	gift := NewSequence("Evening Gift",
		when("Is Evening?", IsEvening),
		when("Friend Nearby?", NearbyFriend),
		when("Has Wheat?", HasItem("Wheat", 1)),
		do("Give Gift", decision.GiveGift, GiveGift),
	)
	idle := root.children[len(root.children)-1]
	root.children = append(root.children[:len(root.children)-1], gift, idle)
	return t
}

// ForOccupation picks the stock tree for an occupation title.
func ForOccupation(title string) *Tree {
	switch t := strings.ToLower(title); {
	case strings.Contains(t, "farm"):
		return NewFarmerTree()
	case strings.Contains(t, "merchant"), strings.Contains(t, "shop"):
		return NewMerchantTree()
	}
	return NewVillagerTree()
}
