package enum

type EmailDirection string

const (
	EmailInbound  EmailDirection = "inbound"
	EmailOutbound EmailDirection = "outbound"
)

func (t EmailDirection) String() string {
	return string(t)
}

// Short wire form used in email identifiers ("2021-09-29_082835 - IN").
func (t EmailDirection) Short() string {
	if t == EmailOutbound {
		return "OUT"
	}
	return "IN"
}

type RoutingOutcome string

const (
	RoutingRouted    RoutingOutcome = "routed"
	RoutingNoMatch   RoutingOutcome = "no_match"
	RoutingAmbiguous RoutingOutcome = "ambiguous"
)

func (t RoutingOutcome) String() string {
	return string(t)
}
