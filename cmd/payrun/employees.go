package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/salary-disbursement/internal/cli"
	"github.com/Veraticus/salary-disbursement/internal/common"
	"github.com/Veraticus/salary-disbursement/internal/model"
)

func employeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Manage the employee roster used by the roster approval check",
	}

	cmd.AddCommand(employeesAddCmd())
	cmd.AddCommand(employeesListCmd())

	return cmd
}

func employeesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <employeeId> <name>",
		Short: "Add or update a roster entry",
		Long: `Register an employee. Salary items for employees missing from the roster,
or marked inactive, are rejected by the roster check. When an account number is
given, salary items must pay into that account.

Examples:
  payrun employees add E001 "Jane Doe" --account 1234567890 --bank 001
  payrun employees add E002 "John Roe" --inactive`,
		Args: cobra.ExactArgs(2),
		RunE: runEmployeesAdd,
	}

	cmd.Flags().String("account", "", "10-digit account number salary must be paid into")
	cmd.Flags().String("bank", "", "3-digit bank code")
	cmd.Flags().Bool("inactive", false, "register the employee as inactive")

	return cmd
}

func runEmployeesAdd(cmd *cobra.Command, args []string) error {
	account, _ := cmd.Flags().GetString("account")
	bank, _ := cmd.Flags().GetString("bank")
	inactive, _ := cmd.Flags().GetBool("inactive")

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	employee := &model.Employee{
		EmployeeID:    args[0],
		Name:          args[1],
		AccountNumber: account,
		BankCode:      bank,
		Active:        !inactive,
	}
	if err := store.SaveEmployee(cmd.Context(), employee); err != nil {
		return common.NewUserError(fmt.Sprintf("cannot save employee %s", args[0]), err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved employee %s (%s)", employee.EmployeeID, employee.Name)))
	return nil
}

func employeesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roster",
		Args:  cobra.NoArgs,
		RunE:  runEmployeesList,
	}
}

func runEmployeesList(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	employees, err := store.ListEmployees(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(employees) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No employees registered."))
		return nil
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cli.TableCellStyle.Width(12).Render("ID"),
		cli.TableCellStyle.Width(28).Render("NAME"),
		cli.TableCellStyle.Width(14).Render("ACCOUNT"),
		cli.TableCellStyle.Width(6).Render("BANK"),
		cli.TableCellStyle.Render("STATUS"),
	)
	rows := []string{cli.TableHeaderStyle.Render(header)}
	for _, e := range employees {
		state := cli.SuccessStyle.Render("active")
		if !e.Active {
			state = cli.ErrorStyle.Render("inactive")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			cli.TableCellStyle.Width(12).Render(e.EmployeeID),
			cli.TableCellStyle.Width(28).Render(e.Name),
			cli.TableCellStyle.Width(14).Render(e.AccountNumber),
			cli.TableCellStyle.Width(6).Render(e.BankCode),
			cli.TableCellStyle.Render(state),
		))
	}
	fmt.Fprintln(out, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return nil
}
