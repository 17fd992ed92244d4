package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"userdir/internal/directory/form"
	"userdir/internal/directory/list"
	"userdir/internal/directory/models"
)

var fieldFlags = []struct {
	name  string
	field models.Field
	help  string
}{
	{"name", models.FieldFullName, "full name"},
	{"mobile", models.FieldMobileNumber, "10-digit mobile number"},
	{"email", models.FieldEmailAddress, "email address"},
	{"dob", models.FieldDateOfBirth, "date of birth, DD/MM/YYYY"},
	{"addr1", models.FieldAddressLine1, "address line 1"},
	{"addr2", models.FieldAddressLine2, "address line 2 (optional)"},
	{"city", models.FieldCity, "city"},
	{"pin", models.FieldPinCode, "6-digit pin code"},
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func bindFields(fs *flag.FlagSet) map[string]models.Field {
	byFlag := make(map[string]models.Field, len(fieldFlags))
	for _, ff := range fieldFlags {
		fs.String(ff.name, "", ff.help)
		byFlag[ff.name] = ff.field
	}
	return byFlag
}

func (a *app) runList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("list")
	term := fs.String("q", "", "search by name, email or mobile number")
	if err := fs.Parse(args); err != nil {
		return usageError("")
	}
	if err := a.list.Mount(ctx); err != nil {
		return err
	}
	a.list.SetSearchTerm(*term)
	a.renderList(a.list.View())
	return nil
}

func (a *app) renderList(v list.View) {
	if v.Empty != "" {
		fmt.Fprintln(a.out, v.Empty)
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\t\tNAME\tEMAIL\tMOBILE\tDOB\tADDRESS")
		for _, u := range v.Users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				u.ID, list.Initials(u.FullName), u.FullName, u.EmailAddress, u.MobileNumber,
				u.DateOfBirth, list.FormatAddress(u.AddressLine1, u.AddressLine2, u.City, u.PinCode))
		}
		_ = tw.Flush()
	}
	fmt.Fprintln(a.out, v.Summary())
}

func (a *app) runCreate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("create")
	byFlag := bindFields(fs)
	if err := fs.Parse(args); err != nil {
		return usageError("")
	}

	a.cache.ClearEditing()
	a.form.Open()
	fs.VisitAll(func(fl *flag.Flag) {
		if f, ok := byFlag[fl.Name]; ok {
			a.form.SetField(f, fl.Value.String())
		}
	})
	return a.submit(ctx)
}

func (a *app) runEdit(ctx context.Context, args []string) error {
	fs := a.newFlagSet("edit")
	id := fs.String("id", "", "id of the user to edit")
	byFlag := bindFields(fs)
	if err := fs.Parse(args); err != nil {
		return usageError("")
	}
	if *id == "" {
		return usageError("edit: -id is required")
	}

	u, err := a.lookup(ctx, models.UserID(*id))
	if err != nil {
		return err
	}
	a.list.Edit(u)
	a.form.Open()
	fs.Visit(func(fl *flag.Flag) {
		if f, ok := byFlag[fl.Name]; ok {
			a.form.SetField(f, fl.Value.String())
		}
	})
	return a.submit(ctx)
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("delete")
	id := fs.String("id", "", "id of the user to delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return usageError("")
	}
	if *id == "" {
		return usageError("delete: -id is required")
	}

	u, err := a.lookup(ctx, models.UserID(*id))
	if err != nil {
		return err
	}
	a.list.RequestDelete(u.ID)
	if !*yes && !a.confirm(u) {
		a.list.CancelDelete()
		fmt.Fprintln(a.out, "Delete cancelled")
		return nil
	}
	return a.list.ConfirmDelete(ctx)
}

func (a *app) confirm(u models.User) bool {
	fmt.Fprintf(a.out, "%s\n%s <%s> [y/N]: ", list.MsgConfirmDelete, u.FullName, u.EmailAddress)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// lookup loads the record set and returns the user with id.
func (a *app) lookup(ctx context.Context, id models.UserID) (models.User, error) {
	if err := a.list.Mount(ctx); err != nil {
		return models.User{}, err
	}
	for _, u := range a.cache.Snapshot().Users {
		if u.ID == id {
			return u, nil
		}
	}
	fmt.Fprintf(a.errOut, "User not found: %s\n", id)
	return models.User{}, errReported
}

// submit runs the form and prints field errors or the store's message on failure.
func (a *app) submit(ctx context.Context) error {
	out := a.form.Submit(ctx)
	if out.Phase == form.PhaseSubmittedOK {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", out.User.ID, out.User.FullName, out.User.EmailAddress)
		return nil
	}

	v := a.form.View()
	if !out.Errors.Empty() {
		for _, f := range models.Fields {
			if msg, ok := out.Errors.Get(f); ok {
				fmt.Fprintf(a.errOut, "  %s: %s\n", f, msg)
			}
		}
		fmt.Fprintln(a.errOut, v.Summary)
		return errReported
	}
	fmt.Fprintln(a.errOut, "Error:", v.Error)
	return errReported
}
