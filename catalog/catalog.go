// Package catalog holds ready made RouterOS commands. It is plain data, every
// entry is the word list handed to client.Conn.Send.
package catalog

import (
	"sort"
	"strings"

	"github.com/luma/rosapi/protocol"
)

const (
	PathInterface      = "/interface"
	PathIPAddress      = "/ip/address"
	PathIPRoute        = "/ip/route"
	PathDHCPLease      = "/ip/dhcp-server/lease"
	PathFirewallFilter = "/ip/firewall/filter"
	PathSystemResource = "/system/resource"
	PathSystemIdentity = "/system/identity"
	PathLog            = "/log"
)

// Attr builds an attribute word.
func Attr(key, value string) string {
	return protocol.Attribute(key, value)
}

// Query builds a query word.
func Query(key, value string) string {
	return protocol.Query(key, value)
}

// Print lists the entries of a menu, optionally filtered by queries.
func Print(path string, queries ...string) []string {
	return append([]string{path + "/print"}, queries...)
}

// Proplist limits the properties returned by a print.
func Proplist(props ...string) string {
	return Attr(".proplist", strings.Join(props, ","))
}

// Add creates an entry in a menu from key/value pairs.
func Add(path string, attrs map[string]string) []string {
	return append([]string{path + "/add"}, sortedAttrs(attrs)...)
}

// Set changes the entry with the given id.
func Set(path, id string, attrs map[string]string) []string {
	words := []string{path + "/set", Attr(".id", id)}
	return append(words, sortedAttrs(attrs)...)
}

// Remove deletes the entry with the given id.
func Remove(path, id string) []string {
	return []string{path + "/remove", Attr(".id", id)}
}

func InterfacePrint() []string {
	return Print(PathInterface)
}

func EthernetPrint() []string {
	return Print(PathInterface, Query("type", "ether"))
}

func IPAddressPrint() []string {
	return Print(PathIPAddress)
}

func IPAddressAdd(address, iface string) []string {
	return Add(PathIPAddress, map[string]string{"address": address, "interface": iface})
}

func IPRoutePrint() []string {
	return Print(PathIPRoute)
}

func DHCPLeasePrint() []string {
	return Print(PathDHCPLease)
}

func FirewallFilterPrint() []string {
	return Print(PathFirewallFilter)
}

func SystemResourcePrint() []string {
	return Print(PathSystemResource)
}

func SystemIdentityPrint() []string {
	return Print(PathSystemIdentity)
}

func SystemIdentitySet(name string) []string {
	return []string{PathSystemIdentity + "/set", Attr("name", name)}
}

func LogPrint() []string {
	return Print(PathLog)
}

var named = map[string]func() []string{
	"interfaces": InterfacePrint,
	"ethernet":   EthernetPrint,
	"addresses":  IPAddressPrint,
	"routes":     IPRoutePrint,
	"leases":     DHCPLeasePrint,
	"firewall":   FirewallFilterPrint,
	"resources":  SystemResourcePrint,
	"identity":   SystemIdentityPrint,
	"log":        LogPrint,
}

// Lookup returns the command registered under name.
func Lookup(name string) ([]string, bool) {
	fn, ok := named[name]
	if !ok {
		return nil, false
	}

	return fn(), true
}

// Names lists the registered command names, sorted.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func sortedAttrs(attrs map[string]string) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	words := make([]string, 0, len(keys))
	for _, k := range keys {
		words = append(words, Attr(k, attrs[k]))
	}

	return words
}
